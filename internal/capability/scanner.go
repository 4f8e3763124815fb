package capability

import (
	"reflect"

	"beacon/pkg/logging"
)

// DiscoveredItem pairs a bound handler with its definition. The handler is
// bound to its owning instance (receiver captured), so invoking it later
// behaves exactly like calling the method on the instance directly.
type DiscoveredItem struct {
	Owner      any
	Definition Definition
	Handler    any
}

// Scanner walks the host application's managed instances and yields every
// method carrying an annotation of the requested kind. Discovery is purely
// reflective: it never fails, it only skips. A second Discover call after no
// catalog or instance change yields the same set; it is a one-shot snapshot,
// not a live feed.
type Scanner struct {
	catalog   *Catalog
	instances []any
}

// NewScanner creates a scanner over the given instance list. The order of
// instances fixes the order of discovery output.
func NewScanner(catalog *Catalog, instances ...any) *Scanner {
	return &Scanner{
		catalog:   catalog,
		instances: instances,
	}
}

// Discover enumerates every method reachable on every managed instance and
// returns the ones annotated with the requested kind, bound to their owners.
// Nil instances, values without methods, and per-instance reflection panics
// are tolerated; a failure scanning one instance never aborts the scan of
// the others.
func (s *Scanner) Discover(kind Kind) []DiscoveredItem {
	var items []DiscoveredItem

	for _, instance := range s.instances {
		items = append(items, s.scanInstance(kind, instance)...)
	}

	logging.Debug("Scanner", "Discovered %d %s handlers across %d instances",
		len(items), kind, len(s.instances))
	return items
}

func (s *Scanner) scanInstance(kind Kind, instance any) (items []DiscoveredItem) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Scanner", "Skipping instance %T: panic during scan: %v", instance, r)
		}
	}()

	if instance == nil {
		return nil
	}

	rv := reflect.ValueOf(instance)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		// Methods of interface types carry no func value to take an
		// identity from.
		if !method.Func.IsValid() {
			continue
		}

		def, ok := s.lookupMethod(kind, method.Func.Pointer())
		if !ok {
			continue
		}

		items = append(items, DiscoveredItem{
			Owner:      instance,
			Definition: def,
			Handler:    rv.Method(i).Interface(),
		})
	}

	return items
}

// lookupMethod isolates a single metadata lookup so that a panic in one
// lookup cannot abort the enclosing method loop's siblings.
func (s *Scanner) lookupMethod(kind Kind, fn uintptr) (def Definition, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Scanner", "Metadata lookup failed: %v", r)
			ok = false
		}
	}()
	return s.catalog.Lookup(kind, fn)
}
