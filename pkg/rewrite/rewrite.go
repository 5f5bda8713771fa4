// Package rewrite applies the condition converter to whole C/C++ sources:
// single files and directory trees.
package rewrite

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/lemonberrylabs/nonbool/pkg/expr"
	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// DefaultIncludes selects the usual C and C++ source and header files.
var DefaultIncludes = []string{"**.{c,h,cc,cpp,cxx,hh,hpp,hxx,inc}"}

var errUnterminatedComment = errors.New("unterminated comment in directive")

var directiveName = regexp.MustCompile(`^\s*#\s*([A-Za-z_]+)`)

// Options configures a Rewriter.
type Options struct {
	// Includes are glob patterns matched against slash-separated paths
	// relative to the tree root. Empty means DefaultIncludes.
	Includes []string
	// Strict makes the first failing directive abort the file.
	Strict bool
	// StripErrors blanks the body of every section containing #error.
	StripErrors bool
	// Workers bounds the number of files processed at once. Zero or less
	// means 8.
	Workers int
}

// Stats counts the work done by a Rewriter.
type Stats struct {
	Files      int
	Directives int
	Replaced   int
	Failed     int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Files += o.Files
	s.Directives += o.Directives
	s.Replaced += o.Replaced
	s.Failed += o.Failed
}

func (s Stats) String() string {
	return fmt.Sprintf("%d file(s), %d directive(s), %d replaced, %d failed", s.Files, s.Directives, s.Replaced, s.Failed)
}

// Rewriter rewrites #if and #elif conditions of source files. It is safe
// for concurrent use.
type Rewriter struct {
	replacer *expr.Replacer
	opts     Options
	includes []glob.Glob
}

// New creates a Rewriter converting conditions with r.
func New(r *expr.Replacer, opts Options) (*Rewriter, error) {
	patterns := opts.Includes
	if len(patterns) == 0 {
		patterns = DefaultIncludes
	}
	includes := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		includes = append(includes, g)
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &Rewriter{replacer: r, opts: opts, includes: includes}, nil
}

// Match reports whether the slash-separated relative path is selected by
// the include patterns.
func (rw *Rewriter) Match(rel string) bool {
	for _, g := range rw.includes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// line is one physical line of a source file.
type line struct {
	text string
	cr   bool // line ended with "\r\n"
	kind string
	cont bool // continuation of the directive on the previous line
	keep bool // conditional directive, survives StripErrors
}

// section is an open branch of a conditional, or the top level.
type section struct {
	start  int // index of the opening directive, -1 for the top level
	failed bool
}

// RewriteSource rewrites one file. name is only used in log messages and
// errors. Lines that cannot be converted are logged and left unchanged
// unless Strict is set.
func (rw *Rewriter) RewriteSource(name string, src []byte) ([]byte, Stats, error) {
	stats := Stats{Files: 1}
	lines := splitLines(string(src))

	for i := 0; i < len(lines); i++ {
		kind := directiveKind(lines[i].text)
		if kind == "" {
			continue
		}
		// Collect the continuation lines of the directive.
		end := i
		for end < len(lines)-1 && strings.HasSuffix(lines[end].text, `\`) {
			end++
		}
		for j := i; j <= end; j++ {
			lines[j].kind = kind
			lines[j].cont = j > i
			lines[j].keep = isConditional(kind)
		}
		if kind == "if" || kind == "elif" {
			stats.Directives++
			if err := rw.replace(lines, i, end); err != nil {
				stats.Failed++
				if rw.opts.Strict {
					return nil, stats, fmt.Errorf("%s:%d: %w", name, i+1, err)
				}
				logFailure(name, i+1, err)
			} else {
				stats.Replaced++
			}
		}
		i = end
	}

	if rw.opts.StripErrors {
		stripErrorSections(lines)
	}
	return joinLines(lines), stats, nil
}

// replace converts the directive spanning lines[start:end+1]. On success
// the first line holds the result and the continuation lines are emptied.
func (rw *Rewriter) replace(lines []line, start, end int) error {
	var b strings.Builder
	for j := start; j <= end; j++ {
		text := lines[j].text
		if j < end {
			text = strings.TrimSuffix(text, `\`)
		}
		b.WriteString(text)
		if j < end {
			b.WriteByte(' ')
		}
	}
	logical, err := stripComments(b.String())
	if err != nil {
		return err
	}
	out, err := rw.replacer.ReplaceLine(logical)
	if err != nil {
		return err
	}
	lines[start].text = out
	for j := start + 1; j <= end; j++ {
		lines[j].text = ""
	}
	return nil
}

func logFailure(name string, lineNo int, err error) {
	log.Printf("Warning: %s:%d: %v", name, lineNo, err)
	var ee *types.ExpressionError
	if errors.As(err, &ee) && ee.Expression != "" && len(ee.Positions) > 0 {
		log.Printf("    %s", ee.Expression)
		log.Printf("    %s", ee.Marker())
	}
}

// stripErrorSections blanks every non-conditional line of a section that
// contains #error. Nested sections are independent of their parent.
func stripErrorSections(lines []line) {
	blank := func(from, to int) {
		for j := from; j < to; j++ {
			if !lines[j].keep {
				lines[j].text = ""
			}
		}
	}

	stack := []section{{start: -1}}
	for i, l := range lines {
		if l.cont {
			continue
		}
		top := &stack[len(stack)-1]
		switch l.kind {
		case "error":
			top.failed = true
		case "if", "ifdef", "ifndef":
			stack = append(stack, section{start: i})
		case "elif", "else":
			if len(stack) > 1 {
				if top.failed {
					blank(top.start+1, i)
				}
				*top = section{start: i}
			}
		case "endif":
			if len(stack) > 1 {
				if top.failed {
					blank(top.start+1, i)
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	// Unterminated sections and the top level end with the file.
	for j := len(stack) - 1; j >= 0; j-- {
		if stack[j].failed {
			blank(stack[j].start+1, len(lines))
		}
	}
}

func directiveKind(text string) string {
	m := directiveName.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func isConditional(kind string) bool {
	switch kind {
	case "if", "ifdef", "ifndef", "elif", "else", "endif":
		return true
	}
	return false
}

// stripComments removes C and C++ comments from a directive. A block
// comment that is not closed on the directive is an error.
func stripComments(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				return strings.TrimRight(b.String(), " \t"), nil
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return "", errUnterminatedComment
				}
				b.WriteByte(' ')
				i += end + 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return strings.TrimRight(b.String(), " \t"), nil
}

func splitLines(src string) []line {
	parts := strings.Split(src, "\n")
	lines := make([]line, len(parts))
	for i, p := range parts {
		if strings.HasSuffix(p, "\r") {
			lines[i] = line{text: strings.TrimSuffix(p, "\r"), cr: true}
		} else {
			lines[i] = line{text: p}
		}
	}
	return lines
}

func joinLines(lines []line) []byte {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.text)
		if l.cr {
			b.WriteByte('\r')
		}
	}
	return []byte(b.String())
}
