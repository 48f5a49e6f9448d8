package calc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccalc/internal/expr"
	"doccalc/internal/params"
)

type stubEngine struct {
	value float64
	err   error
	calls []string
}

func (s *stubEngine) Evaluate(_ context.Context, expression string) (float64, error) {
	s.calls = append(s.calls, expression)
	return s.value, s.err
}

type recordingAttestor struct {
	mu   sync.Mutex
	seen []expr.Attestation
}

func (r *recordingAttestor) Confirm(a expr.Attestation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, a)
}

func TestExpression_Gating(t *testing.T) {
	tests := []struct {
		name     string
		local    params.Set
		document params.Set
		want     string
	}{
		{"no expression", set("author", "Johny", "calc_exp_license_type", "commercial"), nil, "NaE"},
		{"blank expression", set("exp", "  ", "author", "Johny", "calc_exp_license_type", "commercial"), nil, "NaE"},
		{"no author", set("exp", "1+1", "calc_exp_license_type", "commercial"), nil, "NaA"},
		{"blank author", set("exp", "1+1", "author", "   ", "calc_exp_license_type", "commercial"), nil, "NaA"},
		{"short author", set("exp", "1+1", "author", "Jon", "calc_exp_license_type", "commercial"), nil, "NaVA"},
		{"four letter author", set("exp", "1+1", "author", "Jhon", "calc_exp_license_type", "commercial"), nil, "NaVA"},
		{"no license", set("exp", "1+1", "author", "Johny"), nil, "NaL"},
		{"unknown license", set("exp", "1+1", "author", "Johny", "calc_exp_license_type", "free"), nil, "NaL"},
		{"license is case sensitive", set("exp", "1+1", "author", "Johny", "calc_exp_license_type", "Commercial"), nil, "NaL"},
		{"ok named", set("exp", "1+1", "author", "Johny", "calc_exp_license_type", "commercial"), nil, "2.00"},
		{"ok positional", set("1", "1+1", "2", "Johny", "3", "non_commercial"), nil, "2.00"},
		{"attestation from document", set("1", "1+1"), set("author", "Johny", "calc_exp_license_type", "non_commercial"), "2.00"},
		{"local author overrides document", set("1", "1+1", "author", "Jon"), set("author", "Johny", "calc_exp_license_type", "commercial"), "NaVA"},
		{"local license overrides document", set("1", "1+1", "calc_exp_license_type", "free"), set("author", "Johny", "calc_exp_license_type", "commercial"), "NaL"},
		{"local fixes invalid document author", set("1", "1+1", "2", "Johny"), set("author", "Jo", "calc_exp_license_type", "commercial"), "2.00"},
		{"expression never from document", set("author", "Johny", "calc_exp_license_type", "commercial"), set("exp", "1+1"), "NaE"},
		{"multibyte author counts characters", set("exp", "1+1", "author", "Jöñä", "calc_exp_license_type", "commercial"), nil, "NaVA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Expression{Engine: &stubEngine{value: 2}, Attestor: &recordingAttestor{}}
			got := c.Calculate(context.Background(), "", tt.local, tt.document)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpression_AttestsBeforeEvaluating(t *testing.T) {
	engine := &stubEngine{value: 12}
	attestor := &recordingAttestor{}
	c := Expression{Engine: engine, Attestor: attestor}

	got := c.Calculate(context.Background(), "", set("1", "3 * 4", "2", "Johny", "3", "non_commercial"), nil)
	assert.Equal(t, "12.00", got)
	assert.Equal(t, []string{"3 * 4"}, engine.calls)
	require.Len(t, attestor.seen, 1)
	assert.Equal(t, expr.Attestation{Author: "Johny", Type: expr.NonCommercial}, attestor.seen[0])

	// Rejected attestations never reach the engine.
	c.Calculate(context.Background(), "", set("1", "3 * 4", "2", "Jo", "3", "commercial"), nil)
	assert.Len(t, engine.calls, 1)
	assert.Len(t, attestor.seen, 1)
}

func TestExpression_Results(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		err   error
		want  string
	}{
		{"integer", 12, nil, "12.00"},
		{"rounds up", 1.0 / 3.0, nil, "0.34"},
		{"negative rounds towards zero", -1.0 / 3.0, nil, "-0.33"},
		{"binary noise rounds up", 0.30000000000000004, nil, "0.31"},
		{"large", 1e21, nil, "1000000000000000000000.00"},
		{"error", 0, expr.ErrUndefined, "NaE"},
		{"syntax", 0, expr.ErrSyntax, "NaE"},
		{"other failure", 0, errors.New("boom"), "NaE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Expression{Engine: &stubEngine{value: tt.value, err: tt.err}}
			got := c.Calculate(context.Background(), "", set("exp", "x", "author", "Johny", "calc_exp_license_type", "commercial"), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpression_RealEngine(t *testing.T) {
	engine := expr.NewEngine(expr.DefaultOptions())
	c := Expression{Engine: engine, Attestor: engine.License()}
	attest := func(exp string) params.Set {
		return set("1", exp, "2", "Johny", "3", "non_commercial")
	}

	tests := map[string]string{
		"3 * 4":                   "12.00",
		"(12 * 4) / 8 + 45 * 0.5": "28.50",
		"1 / 3":                   "0.34",
		"sqrt(2)":                 "1.42",
		"2^3":                     "8.00",
		"2^3^2":                   "512.00",
		"max(1,2,3)":              "3.00",
		"08+1":                    "9.00",
		"1 / 0":                   "NaE",
		"sqrt(-1)":                "NaE",
		"not an expression":       "NaE",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, c.Calculate(context.Background(), "", attest(in), nil))
		})
	}

	a, ok := engine.License().Attestation()
	require.True(t, ok)
	assert.Equal(t, "Johny", a.Author)
}
