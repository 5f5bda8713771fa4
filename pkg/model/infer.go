package model

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/nonbool/pkg/types"
)

var (
	conditionLine = regexp.MustCompile(`^\s*#\s*(?:if|elif)\b(.*)$`)

	// NAME <rel> literal
	nameFirst = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=|<=|>=|<|>)\s*(-?\s*(?:0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]*)\b`)
	// literal <rel> NAME
	literalFirst = regexp.MustCompile(`((?:0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]*)\s*(==|!=|<=|>=|<|>)\s*([A-Za-z_][A-Za-z0-9_]*)`)
)

// Inferrer collects variable domains from the comparisons found in
// conditional directives. Every domain contains 0, the value of an
// undefined macro.
type Inferrer struct {
	constants types.ConstantTable
	domains   map[string]map[int64]bool
}

// NewInferrer creates an Inferrer. Names in consts are never inferred.
func NewInferrer(consts types.ConstantTable) *Inferrer {
	return &Inferrer{constants: consts, domains: make(map[string]map[int64]bool)}
}

// ScanLine records the comparisons of one line. Lines other than #if and
// #elif are ignored.
func (in *Inferrer) ScanLine(line string) {
	m := conditionLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	cond := m[1]

	// Matches that start in the middle of a word (the "1" of "A1" or the
	// "xFF" of "0xFF") are skipped.
	for _, idx := range nameFirst.FindAllStringSubmatchIndex(cond, -1) {
		if idx[0] > 0 && isWordByte(cond[idx[0]-1]) {
			continue
		}
		name := cond[idx[2]:idx[3]]
		in.add(name, cond[idx[6]:idx[7]])
	}
	for _, idx := range literalFirst.FindAllStringSubmatchIndex(cond, -1) {
		if idx[0] > 0 && isWordByte(cond[idx[0]-1]) {
			continue
		}
		name := cond[idx[6]:idx[7]]
		in.add(name, cond[idx[2]:idx[3]])
	}
}

// Scan reads r line by line, joining backslash continuations.
func (in *Inferrer) Scan(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var pending strings.Builder
	for sc.Scan() {
		line := sc.Text()
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(line)
			line = pending.String()
			pending.Reset()
		}
		in.ScanLine(line)
	}
	if pending.Len() > 0 {
		in.ScanLine(pending.String())
	}
	return sc.Err()
}

// ScanFile scans the file at path.
func (in *Inferrer) ScanFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return in.Scan(f)
}

// Model returns the inferred model with variables sorted by name.
func (in *Inferrer) Model() *Model {
	names := make([]string, 0, len(in.domains))
	for name := range in.domains {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Model{Variables: make([]Variable, 0, len(names))}
	for _, name := range names {
		values := make([]int64, 0, len(in.domains[name]))
		for v := range in.domains[name] {
			values = append(values, v)
		}
		m.Variables = append(m.Variables, Variable{
			Name:   name,
			Values: types.NewFiniteVariable(name, values...).Values,
		})
	}
	if len(in.constants) > 0 {
		m.Constants = make(map[string]int64, len(in.constants))
		for k, v := range in.constants {
			m.Constants[k] = v
		}
	}
	return m
}

// Infer scans the given files and returns the inferred model.
func Infer(paths []string, consts types.ConstantTable) (*Model, error) {
	in := NewInferrer(consts)
	for _, p := range paths {
		if err := in.ScanFile(p); err != nil {
			return nil, err
		}
	}
	return in.Model(), nil
}

func (in *Inferrer) add(name, literal string) {
	if name == "defined" || name[0] >= '0' && name[0] <= '9' {
		return
	}
	if _, ok := in.constants.Lookup(name); ok {
		return
	}
	v, ok := parseLiteral(literal)
	if !ok {
		return
	}
	d, ok := in.domains[name]
	if !ok {
		d = map[int64]bool{0: true}
		in.domains[name] = d
	}
	d[v] = true
}

func parseLiteral(s string) (int64, bool) {
	s = strings.Join(strings.Fields(s), "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimRight(s, "uUlL")

	var v int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
