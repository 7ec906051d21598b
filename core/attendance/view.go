package attendance

// View is the console screen currently shown: the sheet generator or the registry of stored sheets.
type View int

const (
	ViewGenerator View = iota
	ViewRegistry
)

// Toggle is the only transition between views.
func (v View) Toggle() View {
	if v == ViewRegistry {
		return ViewGenerator
	}
	return ViewRegistry
}

func (v View) String() string {
	if v == ViewRegistry {
		return "registry"
	}
	return "generator"
}

func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
