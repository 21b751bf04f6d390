// Package replacer expands $-placeholders inside command text: argument
// splices, variable lookups, arithmetic, url-encoding, and remote
// $customapi fetches. Expansion runs to a bounded fixpoint so nested
// placeholders resolve inside-out without unbounded recursion.
package replacer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/telemetry"
)

// maxPasses bounds the fixpoint loop. A malicious $var cycle stops making
// progress or hits this cap; either way expansion terminates.
const maxPasses = 10

// maxBodyBytes caps how much of a $customapi response is read.
const maxBodyBytes = 1 << 20

// VariableSource resolves global variables. *variables.Store satisfies it.
type VariableSource interface {
	Get(ctx context.Context, name string) (string, bool, error)
}

// Replacer holds the collaborators placeholder evaluators need.
type Replacer struct {
	// HTTP performs $customapi fetches. Its timeout is the only timeout
	// applied to remote expansions.
	HTTP *http.Client

	// Vars resolves global variables; nil disables global lookups.
	Vars VariableSource
}

func New(vars VariableSource) *Replacer {
	return &Replacer{
		HTTP: &http.Client{Timeout: 15 * time.Second},
		Vars: vars,
	}
}

var (
	reArgsAll   = regexp.MustCompile(`\$args\(\)`)
	reArgsN     = regexp.MustCompile(`\$args\((\d+)\)`)
	reVar       = regexp.MustCompile(`\$var\(([^)($]*)\)`)
	reUserName  = regexp.MustCompile(`\$user\.name`)
	reCalc      = regexp.MustCompile(`\$calc\((\d+)\s*([-+*/])\s*(\d+)\)`)
	reURLEncode = regexp.MustCompile(`\$urlencode\(([^)($]*)\)`)
	reAPIKey    = regexp.MustCompile(`\$customapi\(([^)($]*)\)\['([^']+)'\]`)
	reAPI       = regexp.MustCompile(`\$customapi\(([^)($]*)\)`)
	reBareArgs  = regexp.MustCompile(`\$args([^($\w]|$)`)
)

// Do expands all placeholders in text. Failed remote fetches degrade to an
// empty string for that placeholder; sibling placeholders and the rest of
// the text still resolve. The only returned error is context cancellation.
func (r *Replacer) Do(ctx context.Context, text string, raw *command.RawCommand, tctx *command.TwitchContext, local []command.LocalVariable) (string, error) {
	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return text, err
		}
		next := r.applyOnce(ctx, text, raw, tctx, local)
		if next == text {
			telemetry.ObserveReplacerPasses(pass + 1)
			return text, nil
		}
		text = next
	}
	telemetry.ObserveReplacerPasses(maxPasses)
	return text, nil
}

// applyOnce runs every evaluator once, in order. Simple substitutions come
// first so that by the time urlencode/customapi run, their arguments are
// usually fully resolved; the argument regexes only fire on resolved text
// (no $ or parens inside), which is what makes nesting resolve inside-out
// across passes.
func (r *Replacer) applyOnce(ctx context.Context, text string, raw *command.RawCommand, tctx *command.TwitchContext, local []command.LocalVariable) string {
	text = replaceAll(reArgsAll, text, func([]string) string {
		return joinArgs(raw)
	})
	text = replaceAll(reArgsN, text, func(m []string) string {
		if raw == nil {
			return ""
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n >= len(raw.Args) {
			return ""
		}
		return raw.Args[n]
	})
	text = replaceAll(reVar, text, func(m []string) string {
		return r.lookupVar(ctx, m[1], local)
	})
	text = replaceAll(reUserName, text, func([]string) string {
		if tctx == nil {
			return ""
		}
		return tctx.DisplayName
	})
	text = replaceAll(reCalc, text, func(m []string) string {
		return calc(m[1], m[2], m[3])
	})
	text = replaceAll(reURLEncode, text, func(m []string) string {
		return url.QueryEscape(m[1])
	})
	text = replaceAll(reAPIKey, text, func(m []string) string {
		return r.fetchJSONField(ctx, m[1], m[2])
	})
	text = replaceAll(reAPI, text, func(m []string) string {
		return r.fetchText(ctx, m[1])
	})
	// Bare $args (the only bare $word with a meaning) after the function
	// forms are gone. Unrecognized bare $words stay untouched. The pattern
	// consumes the boundary character, so it is re-emitted here.
	text = replaceAll(reBareArgs, text, func(m []string) string {
		return joinArgs(raw) + m[1]
	})
	return text
}

func (r *Replacer) lookupVar(ctx context.Context, name string, local []command.LocalVariable) string {
	for _, v := range local {
		if v.Name == name {
			return v.Value
		}
	}
	if r.Vars == nil {
		return ""
	}
	value, ok, err := r.Vars.Get(ctx, name)
	if err != nil || !ok {
		return ""
	}
	return value
}

func (r *Replacer) fetchText(ctx context.Context, rawURL string) string {
	body, err := r.fetch(ctx, rawURL)
	if err != nil {
		telemetry.IncCustomAPIFailure()
		return ""
	}
	return body
}

func (r *Replacer) fetchJSONField(ctx context.Context, rawURL, key string) string {
	body, err := r.fetch(ctx, rawURL)
	if err != nil {
		telemetry.IncCustomAPIFailure()
		return ""
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		telemetry.IncCustomAPIFailure()
		return ""
	}
	v, ok := parsed[key]
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func (r *Replacer) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("customapi: unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func calc(as, op, bs string) string {
	a, errA := strconv.ParseInt(as, 10, 64)
	b, errB := strconv.ParseInt(bs, 10, 64)
	if errA != nil || errB != nil {
		return ""
	}
	switch op {
	case "+":
		return strconv.FormatInt(a+b, 10)
	case "-":
		return strconv.FormatInt(a-b, 10)
	case "*":
		return strconv.FormatInt(a*b, 10)
	case "/":
		if b == 0 {
			return ""
		}
		return strconv.FormatInt(a/b, 10)
	}
	return ""
}

func joinArgs(raw *command.RawCommand) string {
	if raw == nil {
		return ""
	}
	return strings.Join(raw.Args, " ")
}

// replaceAll is ReplaceAllString with access to submatches.
func replaceAll(re *regexp.Regexp, s string, fn func(groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range matches {
		b.WriteString(s[last:loc[0]])
		groups := make([]string, 0, len(loc)/2)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
			} else {
				groups = append(groups, s[loc[i]:loc[i+1]])
			}
		}
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
