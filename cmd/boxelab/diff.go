package main

import (
	"io"
	"strings"

	"github.com/fatih/color"
)

type diffOp uint8

const (
	diffKeep diffOp = iota
	diffDel
	diffAdd
)

type diffLine struct {
	op   diffOp
	text string
}

// lineDiff computes a minimal line edit script between before and after
// using a longest-common-subsequence table. MIR dumps are small, so the
// quadratic table is fine.
func lineDiff(before, after string) []diffLine {
	a := splitLines(before)
	b := splitLines(after)

	// lcs[i][j] = length of the LCS of a[i:] and b[j:]
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	out := make([]diffLine, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, diffLine{op: diffKeep, text: a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, diffLine{op: diffDel, text: a[i]})
			i++
		default:
			out = append(out, diffLine{op: diffAdd, text: b[j]})
			j++
		}
	}
	for ; i < len(a); i++ {
		out = append(out, diffLine{op: diffDel, text: a[i]})
	}
	for ; j < len(b); j++ {
		out = append(out, diffLine{op: diffAdd, text: b[j]})
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

var (
	diffDelColor = color.New(color.FgRed)
	diffAddColor = color.New(color.FgGreen)
)

// writeDiff prints lines with -/+ markers; colors follow color.NoColor.
func writeDiff(w io.Writer, lines []diffLine) error {
	var sb strings.Builder
	for _, l := range lines {
		switch l.op {
		case diffDel:
			sb.WriteString(diffDelColor.Sprint("- " + l.text))
		case diffAdd:
			sb.WriteString(diffAddColor.Sprint("+ " + l.text))
		default:
			sb.WriteString("  " + l.text)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
