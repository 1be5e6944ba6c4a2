package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

// TestEBNF verifies that briar.ebnf is syntactically well-formed EBNF and
// that every production reachable from Chunk (the grammar's start symbol,
// spec.md §4.2) is defined.
func TestEBNF(t *testing.T) {
	f, err := os.Open("briar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("briar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Chunk"); err != nil {
		t.Fatal(err)
	}
}
