// Package maincmd implements the briar command-line tool: flag parsing and
// the evaluate/disassemble/REPL behaviors the embedding API is driven
// through, per spec.md §6's "CLI (thin, not the core)".
package maincmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/briarlang/briar/lang/compiler"
)

// disassemble writes a human-readable listing of res's bytecode to w under
// name, then recurses into any nested function constants so a `-d` run
// shows a whole program's compiled form, not just its entry chunk.
func disassemble(w io.Writer, name string, res *compiler.CompilationResult) {
	fmt.Fprintf(w, "== %s (params=%d locals=%d free=%d) ==\n", name, res.NumParams, res.NumLocals, res.NumFree)

	code := res.Bytecode
	var nested []*compiler.CompilationResult
	for ip := 0; ip < len(code); {
		op := compiler.Opcode(code[ip])
		width := compiler.OperandWidth(op)

		switch {
		case op == compiler.FUNCTION:
			constIdx := binary.BigEndian.Uint16(code[ip+1:])
			nfree := code[ip+3]
			fmt.Fprintf(w, "%04d %-20s const=%d nfree=%d\n", ip, op, constIdx, nfree)
			if int(constIdx) < len(res.Constants) {
				if fn, ok := res.Constants[constIdx].(*compiler.CompilationResult); ok {
					nested = append(nested, fn)
				}
			}
			ip += 1 + width
			continue
		case op == compiler.NUMBER:
			bits := binary.BigEndian.Uint64(code[ip+1:])
			fmt.Fprintf(w, "%04d %-20s %v\n", ip, op, math.Float64frombits(bits))
		case width == 2:
			fmt.Fprintf(w, "%04d %-20s %d\n", ip, op, binary.BigEndian.Uint16(code[ip+1:]))
		case width == 1:
			fmt.Fprintf(w, "%04d %-20s %d\n", ip, op, code[ip+1])
		default:
			fmt.Fprintf(w, "%04d %s\n", ip, op)
		}
		ip += 1 + width
	}

	for i, fn := range nested {
		disassemble(w, fmt.Sprintf("%s$%d", name, i), fn)
	}
}
