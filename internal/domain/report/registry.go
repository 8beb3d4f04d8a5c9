package report

import (
	"fmt"
	"strings"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// AllReports is the wildcard name resolving to every enabled descriptor.
const AllReports = "ALL"

// Registry is the discovery catalog. Registration order is preserved so
// base reports can be listed before their dependents.
type Registry struct {
	order  []Descriptor
	byName map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor to the catalog. Names are unique.
func (r *Registry) Register(d Descriptor) error {
	name := d.Name()
	if name == "" {
		return &types.ConfigurationError{Field: "report", Reason: "descriptor has no name"}
	}
	if _, dup := r.byName[name]; dup {
		return &types.ConfigurationError{Field: "report", Reason: fmt.Sprintf("duplicate report name %q", name)}
	}
	r.byName[name] = d
	r.order = append(r.order, d)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns every registered report name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, d.Name())
	}
	return out
}

// Resolve maps requested names to enabled descriptors. An empty request or
// the ALL wildcard selects every enabled descriptor; an unknown name is a
// configuration error. Disabled descriptors are silently skipped.
func (r *Registry) Resolve(names []string) ([]Descriptor, error) {
	if r.wantAll(names) {
		out := make([]Descriptor, 0, len(r.order))
		for _, d := range r.order {
			if d.Enabled() {
				out = append(out, d)
			}
		}
		return out, nil
	}

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		d, ok := r.byName[name]
		if !ok {
			return nil, &types.ConfigurationError{Field: "reports", Reason: fmt.Sprintf("unknown report %q", name)}
		}
		if !d.Enabled() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// ResolveProvider resolves names and keeps only the given provider's
// descriptors, in registration order.
func (r *Registry) ResolveProvider(provider entity.ProviderID, names []string) ([]Descriptor, error) {
	all, err := r.Resolve(names)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if d.Provider() == provider {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *Registry) wantAll(names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if strings.EqualFold(n, AllReports) {
			return true
		}
	}
	return false
}
