package schema

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// NameAndType is one column of a required-columns schema.
type NameAndType struct {
	Name string
	Type arrow.DataType
}

// NamesAndTypes is the ordered, immutable insertion schema of a target
// table. It is safe to share between readers.
type NamesAndTypes struct {
	cols  []NameAndType
	index map[string]int
}

// NewNamesAndTypes copies cols into a new schema. A repeated name keeps
// its first position for Lookup.
func NewNamesAndTypes(cols ...NameAndType) *NamesAndTypes {
	nt := &NamesAndTypes{
		cols:  make([]NameAndType, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	copy(nt.cols, cols)
	for i, c := range nt.cols {
		if _, ok := nt.index[c.Name]; !ok {
			nt.index[c.Name] = i
		}
	}
	return nt
}

// FromArrowSchema takes the names and types of s, dropping nullability.
func FromArrowSchema(s *arrow.Schema) *NamesAndTypes {
	cols := make([]NameAndType, 0, s.NumFields())
	for _, f := range s.Fields() {
		cols = append(cols, NameAndType{Name: f.Name, Type: f.Type})
	}
	return NewNamesAndTypes(cols...)
}

// Len returns the number of columns.
func (nt *NamesAndTypes) Len() int {
	return len(nt.cols)
}

// At returns the i-th column.
func (nt *NamesAndTypes) At(i int) NameAndType {
	return nt.cols[i]
}

// Names returns the column names in order.
func (nt *NamesAndTypes) Names() []string {
	names := make([]string, len(nt.cols))
	for i, c := range nt.cols {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the type of the named column.
func (nt *NamesAndTypes) Lookup(name string) (arrow.DataType, bool) {
	i, ok := nt.index[name]
	if !ok {
		return nil, false
	}
	return nt.cols[i].Type, true
}

// Has reports whether the named column is present.
func (nt *NamesAndTypes) Has(name string) bool {
	_, ok := nt.index[name]
	return ok
}

func (nt *NamesAndTypes) String() string {
	var sb strings.Builder
	for i, c := range nt.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(TypeName(c.Type))
	}
	return sb.String()
}
