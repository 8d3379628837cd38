package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmccarv/decipher/internal/solver"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// previewSymbols is how much decoded text a preview shows.
const previewSymbols = 200

// Guess is one ranked key.
type Guess struct {
	Rank      int       `json:"rank"`
	LogLik    float64   `json:"log_likelihood"`
	Delta     float64   `json:"delta"`
	Restart   int       `json:"restart"`
	Iteration int       `json:"iteration"`
	Key       string    `json:"key"`
	Mappings  string    `json:"mappings"`
	Decoded   string    `json:"decoded"`
	Accuracy  *Accuracy `json:"accuracy,omitempty"`
}

// RestartSummary describes how one restart ended.
type RestartSummary struct {
	Restart    int     `json:"restart"`
	Reason     string  `json:"reason"`
	Iterations int     `json:"iterations"`
	Acceptance float64 `json:"acceptance"`
	Best       float64 `json:"best"`
}

// Report is the outcome of one decipher run.
type Report struct {
	RunID    string           `json:"run_id"`
	Alphabet string           `json:"alphabet"`
	Identity float64          `json:"identity_log_likelihood"`
	Restarts []RestartSummary `json:"restarts"`
	Guesses  []Guess          `json:"guesses"`
}

// New builds a report. raw is the unfiltered ciphertext each guess decodes;
// identity is the log-likelihood of the unmodified ciphertext. ref may be
// nil.
func New(runID, raw string, identity float64, res solver.Result, ref *Reference) Report {
	r := Report{RunID: runID, Identity: identity}
	for _, t := range res.Trajectories {
		r.Restarts = append(r.Restarts, RestartSummary{
			Restart:    t.Restart + 1,
			Reason:     t.Reason.String(),
			Iterations: len(t.Samples),
			Acceptance: t.AcceptanceRate(),
			Best:       t.Best.LogLik,
		})
	}

	for n, s := range res.Ranked {
		a := s.State.Stats().Alphabet()
		r.Alphabet = a.Name()
		key := s.State.Key()
		g := Guess{
			Rank:      n + 1,
			LogLik:    s.LogLik,
			Delta:     s.LogLik - identity,
			Restart:   s.Restart + 1,
			Iteration: s.Iteration,
			Key:       key.Encode(a),
			Mappings:  key.Format(a),
			Decoded:   Decode(a, key, raw),
		}
		if ref != nil {
			acc := Measure(s.State, ref)
			g.Accuracy = &acc
		}
		r.Guesses = append(r.Guesses, g)
	}
	return r
}

// RenderOptions control the text layout.
type RenderOptions struct {
	// Full prints the whole decoded text instead of a preview.
	Full bool
	// Width is the rule and preview line width.
	Width int
}

// TerminalWidth is the width of w if it is a terminal, and 80 otherwise.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) {
		if cols, _, err := term.GetSize(int(fd)); err == nil && cols > 0 {
			return cols
		}
	}
	return 80
}

// Render writes the report as text.
func Render(w io.Writer, r Report, opts RenderOptions) error {
	width := opts.Width
	if width < 1 {
		width = 80
	}
	p := &printer{w: w}

	p.printf("Run %s (%s alphabet)\n", r.RunID, r.Alphabet)
	p.printf("Identity log-prob: %.2f\n", r.Identity)
	for _, rs := range r.Restarts {
		p.printf("Restart %d/%d %s after %d steps, acceptance %.2f%%, best logP %.0f\n",
			rs.Restart, len(r.Restarts), rs.Reason, rs.Iterations, rs.Acceptance*100, rs.Best)
	}

	p.printf("\n%s\nBest Guesses:\n\n", strings.Repeat("=", width))
	for _, g := range r.Guesses {
		p.printf("Guess %d  |  %s\n\n", g.Rank, strings.Join(metrics(g), " | "))
		if opts.Full {
			p.printf("%s\n", g.Decoded)
		} else {
			for _, line := range strings.Split(preview(g.Decoded), "\n") {
				p.printf("%s\n", runewidth.Truncate(line, width, "…"))
			}
		}
		p.printf("%s\n", strings.Repeat("*", width))
	}
	return p.err
}

func metrics(g Guess) []string {
	m := []string{
		fmt.Sprintf("logP %.0f", g.LogLik),
		fmt.Sprintf("Δ %+.0f", g.Delta),
	}
	if g.Accuracy == nil {
		return m
	}
	acc := g.Accuracy
	for _, s := range []struct {
		name  string
		score *Score
	}{
		{"overall", acc.Mapping.Overall},
		{"letters", acc.Mapping.Letters},
		{"others", acc.Mapping.Others},
	} {
		if s.score != nil {
			m = append(m, fmt.Sprintf("%s %d/%d (%.2f%%)", s.name, s.score.Correct, s.score.Total, s.score.Rate*100))
		}
	}
	return append(m,
		fmt.Sprintf("char %.2f%% (%d errs)", acc.Char*100, acc.CharErrors),
		fmt.Sprintf("word %.2f%%", acc.Word*100),
	)
}

func preview(s string) string {
	rs := []rune(s)
	if len(rs) <= previewSymbols {
		return s
	}
	return string(rs[:previewSymbols]) + "…"
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
