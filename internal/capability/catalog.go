package capability

import (
	"fmt"
	"reflect"
	"sync"
)

// Catalog is the side table mapping handler identity to declarative
// definitions. Application code annotates methods at construction time with
// method expressions:
//
//	catalog.Annotate(capability.Definition{
//		Kind: capability.KindTool,
//		Name: "forecast",
//	}, (*WeatherService).Forecast)
//
// The annotation never alters the method's calling behavior; it only records
// the definition for the discovery scanner. Each kind has its own table, so a
// method annotated as a tool never satisfies a resource lookup.
type Catalog struct {
	mu     sync.RWMutex
	byKind map[Kind]map[uintptr]Definition
}

// NewCatalog creates an empty annotation catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byKind: make(map[Kind]map[uintptr]Definition),
	}
}

// Annotate attaches a definition to a method. The method argument must be a
// method expression (or any func value); its func pointer is the identity the
// scanner recovers during discovery. Annotating the same method twice for the
// same kind replaces the earlier definition.
func (c *Catalog) Annotate(def Definition, method any) error {
	fn, err := funcPointer(method)
	if err != nil {
		return fmt.Errorf("cannot annotate %s %q: %w", def.Kind, def.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := c.byKind[def.Kind]
	if !ok {
		table = make(map[uintptr]Definition)
		c.byKind[def.Kind] = table
	}
	table[fn] = def
	return nil
}

// Lookup returns the definition of the given kind attached to the func
// pointer, if any.
func (c *Catalog) Lookup(kind Kind, fn uintptr) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byKind[kind][fn]
	return def, ok
}

// LookupMethod is Lookup for a method expression instead of a raw pointer.
func (c *Catalog) LookupMethod(kind Kind, method any) (Definition, bool) {
	fn, err := funcPointer(method)
	if err != nil {
		return Definition{}, false
	}
	return c.Lookup(kind, fn)
}

// Count returns the number of annotations stored for a kind.
func (c *Catalog) Count(kind Kind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKind[kind])
}

func funcPointer(method any) (uintptr, error) {
	if method == nil {
		return 0, fmt.Errorf("method is nil")
	}
	v := reflect.ValueOf(method)
	if v.Kind() != reflect.Func {
		return 0, fmt.Errorf("method is %s, not a func", v.Kind())
	}
	return v.Pointer(), nil
}
