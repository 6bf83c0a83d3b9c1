package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed line in an assembly source. Assembly is
// all-or-nothing: a SyntaxError means no program was produced.
type SyntaxError struct {
	// Line is the 1-based line number in the original source.
	Line int

	// Text is the offending source line (comments stripped).
	Text string

	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// sourceLine is a cleaned, non-empty line with its original line number.
type sourceLine struct {
	num  int
	text string
}

// cleanLine strips '#' and ';' comments and surrounding whitespace.
func cleanLine(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parseReg resolves a register token (x0..x31, case-insensitive).
func parseReg(tok string) (uint8, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if !strings.HasPrefix(tok, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return uint8(n), true
}

// parseImm parses a decimal or 0x-prefixed hex immediate.
func parseImm(tok string) (int64, bool) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		v, err := strconv.ParseInt(tok[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	return v, err == nil
}

// Assemble parses assembly text into a Program.
//
// Format: one instruction or label per line, '#' or ';' start a comment,
// a line ending in ':' declares a label at the next instruction's index.
// Labels are resolved in a first pass, instructions are built in a second
// pass, and each instruction receives a strictly increasing sequence id in
// textual order. On any malformed line, Assemble returns a *SyntaxError
// and no program.
func Assemble(text string) (*Program, error) {
	var lines []sourceLine
	for num, raw := range strings.Split(text, "\n") {
		cl := cleanLine(raw)
		if cl != "" {
			lines = append(lines, sourceLine{num: num + 1, text: cl})
		}
	}

	// Pass 1: collect labels at instruction-count positions.
	labels := make(map[string]int)
	var ops []sourceLine
	for _, ln := range lines {
		if strings.HasSuffix(ln.text, ":") {
			name := strings.TrimSpace(strings.TrimSuffix(ln.text, ":"))
			if name == "" {
				return nil, &SyntaxError{Line: ln.num, Text: ln.text, Msg: "empty label name"}
			}
			labels[name] = len(ops)
			continue
		}
		ops = append(ops, ln)
	}

	// Pass 2: build instructions, resolving branch labels to indices.
	program := make([]*Instruction, 0, len(ops))
	for seq, ln := range ops {
		inst, err := assembleLine(ln, labels)
		if err != nil {
			return nil, err
		}
		inst.Seq = seq
		program = append(program, inst)
	}

	return NewProgram(program), nil
}

// assembleLine builds one instruction from a cleaned source line.
func assembleLine(ln sourceLine, labels map[string]int) (*Instruction, error) {
	toks := strings.Fields(strings.ReplaceAll(ln.text, ",", " "))
	op := strings.ToLower(toks[0])

	fail := func(msg string) (*Instruction, error) {
		return nil, &SyntaxError{Line: ln.num, Text: ln.text, Msg: msg}
	}

	switch op {
	case "nop":
		if len(toks) != 1 {
			return fail("nop takes no operands")
		}
		return &Instruction{Op: OpNOP, Raw: ln.text}, nil

	case "add", "sub":
		if len(toks) != 4 {
			return fail(op + " expects rd, rs1, rs2")
		}
		rd, ok1 := parseReg(toks[1])
		rn, ok2 := parseReg(toks[2])
		rm, ok3 := parseReg(toks[3])
		if !ok1 || !ok2 || !ok3 {
			return fail("unknown register")
		}
		kind := OpADD
		if op == "sub" {
			kind = OpSUB
		}
		return &Instruction{Op: kind, Rd: rd, Rn: rn, Rm: rm, Raw: ln.text}, nil

	case "lw":
		if len(toks) != 3 {
			return fail("lw expects rd, offset(base)")
		}
		rd, ok := parseReg(toks[1])
		if !ok {
			return fail("unknown register")
		}
		imm, base, err := parseAddress(ln, toks[2])
		if err != nil {
			return nil, err
		}
		return &Instruction{Op: OpLW, Rd: rd, Rn: base, Imm: imm, Raw: ln.text}, nil

	case "sw":
		if len(toks) != 3 {
			return fail("sw expects rs2, offset(base)")
		}
		rm, ok := parseReg(toks[1])
		if !ok {
			return fail("unknown register")
		}
		imm, base, err := parseAddress(ln, toks[2])
		if err != nil {
			return nil, err
		}
		return &Instruction{Op: OpSW, Rn: base, Rm: rm, Imm: imm, Raw: ln.text}, nil

	case "beq":
		if len(toks) != 4 {
			return fail("beq expects rs1, rs2, label")
		}
		rn, ok1 := parseReg(toks[1])
		rm, ok2 := parseReg(toks[2])
		if !ok1 || !ok2 {
			return fail("unknown register")
		}
		target, ok := labels[toks[3]]
		if !ok {
			// A numeric absolute instruction index is accepted in
			// place of a label.
			imm, numOK := parseImm(toks[3])
			if !numOK {
				return fail("unknown label " + strconv.Quote(toks[3]))
			}
			target = int(imm)
		}
		return &Instruction{Op: OpBEQ, Rn: rn, Rm: rm, BranchTarget: target, Raw: ln.text}, nil

	default:
		return fail("unsupported opcode " + strconv.Quote(op))
	}
}

// parseAddress parses the offset(base) shape of load/store operands.
// An empty offset means 0.
func parseAddress(ln sourceLine, tok string) (int64, uint8, error) {
	open := strings.Index(tok, "(")
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return 0, 0, &SyntaxError{Line: ln.num, Text: ln.text, Msg: "address must be offset(base)"}
	}
	offStr := tok[:open]
	regStr := tok[open+1 : len(tok)-1]

	base, ok := parseReg(regStr)
	if !ok {
		return 0, 0, &SyntaxError{Line: ln.num, Text: ln.text, Msg: "unknown base register"}
	}
	if offStr == "" {
		return 0, base, nil
	}
	imm, ok := parseImm(offStr)
	if !ok {
		return 0, 0, &SyntaxError{Line: ln.num, Text: ln.text, Msg: "malformed offset"}
	}
	return imm, base, nil
}
