// Package validator checks a catalog and the post flow before they are served.
package validator

import (
	"fmt"
	"strings"

	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/domain"
)

// ValidateCatalog reports empty option lists, blank or duplicated options and
// image models without a name or size.
func ValidateCatalog(c runtime.Catalog) error {
	var errs []string

	if strings.TrimSpace(c.Greeting) == "" {
		errs = append(errs, "greeting is empty")
	}
	errs = append(errs, checkOptions("accounts", c.Accounts)...)
	errs = append(errs, checkOptions("post_types", c.PostTypes)...)
	errs = append(errs, checkOptions("backgrounds", c.Backgrounds)...)

	for name, m := range map[string]runtime.ImageModel{
		"images.with_reference":    c.Images.WithReference,
		"images.without_reference": c.Images.WithoutReference,
	} {
		if m.Model == "" || m.Size == "" {
			errs = append(errs, fmt.Sprintf("%s needs both model and size", name))
		}
	}

	return joinErrors(errs)
}

func checkOptions(name string, options []string) []string {
	if len(options) == 0 {
		return []string{fmt.Sprintf("%s has no options", name)}
	}
	var errs []string
	seen := make(map[string]bool, len(options))
	for i, opt := range options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" {
			errs = append(errs, fmt.Sprintf("%s[%d] is blank", name, i))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Sprintf("%s has duplicate option '%s'", name, opt))
		}
		seen[key] = true
	}
	return errs
}

// ValidateFlow crawls edges from idle and reports steps that cannot be reached
// and steps that never lead back to idle.
func ValidateFlow(edges []runtime.Edge) error {
	next := make(map[domain.Step][]domain.Step)
	prev := make(map[domain.Step][]domain.Step)
	for _, e := range edges {
		next[e.From] = append(next[e.From], e.To)
		prev[e.To] = append(prev[e.To], e.From)
	}

	reachable := crawl(domain.StepIdle, next)
	returning := crawl(domain.StepIdle, prev)

	var errs []string
	for _, step := range domain.PostSteps {
		if !reachable[step] {
			errs = append(errs, fmt.Sprintf("unreachable step: '%s'", step))
		}
		if !returning[step] {
			errs = append(errs, fmt.Sprintf("dead end: '%s' never returns to idle", step))
		}
	}
	for from, targets := range next {
		for _, to := range append([]domain.Step{from}, targets...) {
			if to != domain.StepIdle && to.Index() < 0 {
				errs = append(errs, fmt.Sprintf("unknown step: '%s'", to))
			}
		}
	}

	return joinErrors(errs)
}

func crawl(start domain.Step, links map[domain.Step][]domain.Step) map[domain.Step]bool {
	visited := make(map[domain.Step]bool)
	queue := []domain.Step{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		queue = append(queue, links[current]...)
	}
	return visited
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
}
