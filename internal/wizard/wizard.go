// Package wizard collects the skeleton of a product variant interactively
// and renders it as a variant YAML file.
package wizard

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/microsoft/tolstack/internal/validation"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// DefaultBins is the histogram resolution offered by the wizard.
const DefaultBins = 51

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Answers holds the raw wizard input.
type Answers struct {
	Name        string
	Description string
	// TestPoints is a comma-separated list of test point names.
	TestPoints string
	// Tolerances is a comma-separated list of symmetric half-widths, one
	// per test point or a single value for all.
	Tolerances string
	// Components lists "name=char char" entries separated by commas.
	Components string
	Bins       string
}

// Run asks for the variant skeleton on in/out. Non-terminal input is read
// line by line in accessible mode.
func Run(in io.Reader, out io.Writer, initialName string) (*Answers, error) {
	a := &Answers{Name: initialName, Bins: strconv.Itoa(DefaultBins)}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Variant name").
				Description("Lower-case name used as config_name").
				Placeholder("gearbox").
				Value(&a.Name).
				Validate(ValidateName),
			huh.NewInput().
				Title("Description").
				Value(&a.Description),
			huh.NewInput().
				Title("Test points").
				Description("Comma-separated test point names").
				Placeholder("TP1, TP2").
				Value(&a.TestPoints).
				Validate(requireList("at least one test point is required")),
			huh.NewInput().
				Title("Tolerances").
				Description("Symmetric half-width per test point, or one for all").
				Placeholder("0.1, 0.2").
				Value(&a.Tolerances).
				Validate(requireList("at least one tolerance is required")),
			huh.NewInput().
				Title("Components").
				Description("name=characteristics, e.g. housing=A1 A2, shaft=B1").
				Placeholder("housing=A1 A2, shaft=B1").
				Value(&a.Components).
				Validate(func(s string) error {
					_, err := parseComponents(s)
					return err
				}),
			huh.NewInput().
				Title("Bins").
				Value(&a.Bins).
				Validate(func(s string) error {
					_, err := parseBins(s)
					return err
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	return a, nil
}

// ValidateName checks a variant name.
func ValidateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("variant name is required")
	}
	if !namePattern.MatchString(s) {
		return fmt.Errorf("variant name %q must be lower-case letters, digits, '-' or '_'", s)
	}
	return nil
}

// Build turns the answers into a validated variant. Every characteristic
// starts with nominal mean 0 and coefficient 1 on every test point; the
// file is meant to be edited afterwards.
func Build(a *Answers) (*config.Variant, error) {
	if err := ValidateName(a.Name); err != nil {
		return nil, err
	}
	tps := splitAndTrim(a.TestPoints)
	if len(tps) == 0 {
		return nil, fmt.Errorf("at least one test point is required")
	}
	halfWidths, err := parseTolerances(a.Tolerances, len(tps))
	if err != nil {
		return nil, err
	}
	components, err := parseComponents(a.Components)
	if err != nil {
		return nil, err
	}
	bins, err := parseBins(a.Bins)
	if err != nil {
		return nil, err
	}

	v := &config.Variant{
		Name:             strings.TrimSpace(a.Name),
		Description:      strings.TrimSpace(a.Description),
		Bins:             bins,
		TestPoints:       tps,
		TestPointWeights: make([]float64, len(tps)),
		Tolerances:       make(map[string]models.Tolerance, len(tps)),
		MeanValues:       map[string]float64{},
		FunctionalModel:  map[string][]float64{},
		Components:       components,
		QualityLoss:      config.QualityLossConfig{InefficiencyCosts: make([]float64, len(tps))},
	}
	for i, tp := range tps {
		v.TestPointWeights[i] = 1
		v.Tolerances[tp] = models.Tolerance{Lower: -halfWidths[i], Upper: halfWidths[i]}
		v.QualityLoss.InefficiencyCosts[i] = 1
	}
	for _, chars := range components {
		for _, c := range chars {
			v.MeanValues[c] = 0
			coef := make([]float64, len(tps))
			for i := range coef {
				coef[i] = 1
			}
			v.FunctionalModel[c] = coef
		}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Render marshals v and checks the result against the variant schema.
func Render(v *config.Variant) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to render variant: %w", err)
	}
	if errs := validation.ValidateVariantBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("generated variant does not match the schema: %s", strings.Join(errs, "; "))
	}
	return data, nil
}

func requireList(msg string) func(string) error {
	return func(s string) error {
		if len(splitAndTrim(s)) == 0 {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

func parseTolerances(s string, n int) ([]float64, error) {
	parts := splitAndTrim(s)
	if len(parts) != 1 && len(parts) != n {
		return nil, fmt.Errorf("got %d tolerances for %d test points", len(parts), n)
	}
	out := make([]float64, n)
	for i := range out {
		p := parts[0]
		if len(parts) == n {
			p = parts[i]
		}
		w, err := strconv.ParseFloat(p, 64)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("tolerance %q must be a positive number", p)
		}
		out[i] = w
	}
	return out, nil
}

func parseComponents(s string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, entry := range splitAndTrim(s) {
		name, chars, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		fields := strings.Fields(chars)
		if !ok || name == "" || len(fields) == 0 {
			return nil, fmt.Errorf("component %q must look like name=char1 char2", entry)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate component %q", name)
		}
		out[name] = fields
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one component is required")
	}
	return out, nil
}

func parseBins(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultBins, nil
	}
	bins, err := strconv.Atoi(s)
	if err != nil || bins < 3 {
		return 0, fmt.Errorf("bins must be an integer of at least 3")
	}
	return bins, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
