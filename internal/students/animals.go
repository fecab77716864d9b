package students

import "fmt"

// Animal is an anonymous identity shown instead of a student's real name.
type Animal struct {
	Emoji string
	Name  string
}

// animals are assigned in order; the set is large enough for a full class.
var animals = []Animal{
	{"🦊", "Fuchs"}, {"🐻", "Bär"}, {"🦁", "Löwe"}, {"🐯", "Tiger"},
	{"🦋", "Schmetterling"}, {"🐢", "Schildkröte"}, {"🦉", "Eule"}, {"🐬", "Delfin"},
	{"🦅", "Adler"}, {"🐺", "Wolf"}, {"🦌", "Hirsch"}, {"🐘", "Elefant"},
	{"🦒", "Giraffe"}, {"🐼", "Panda"}, {"🦜", "Papagei"}, {"🐨", "Koala"},
	{"🦩", "Flamingo"}, {"🐸", "Frosch"}, {"🦔", "Igel"}, {"🐿️", "Eichhörnchen"},
	{"🦭", "Robbe"}, {"🐧", "Pinguin"}, {"🦚", "Pfau"}, {"🐝", "Biene"},
	{"🦎", "Eidechse"}, {"🐙", "Oktopus"}, {"🦀", "Krabbe"}, {"🐌", "Schnecke"},
}

// animalFor returns the identity for an index. Indexes past the base set get a
// numbered variant so identities stay distinguishable in very large rooms.
func animalFor(index int) Animal {
	a := animals[index%len(animals)]
	if round := index / len(animals); round > 0 {
		a.Name = fmt.Sprintf("%s %d", a.Name, round+1)
	}
	return a
}
