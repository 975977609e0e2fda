package model

// Upload is a fully buffered uploaded file.
type Upload struct {
	Filename string
	Data     []byte
}

// ListResponse is the paginated list envelope.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// Patch is a set-fields update keyed by document field name.
type Patch struct {
	Set   map[string]any
	Unset []string
}

// SetField assigns a field in the patch.
func (p *Patch) SetField(field string, value any) {
	if p.Set == nil {
		p.Set = make(map[string]any)
	}
	p.Set[field] = value
}

// UnsetField removes a field from the stored document.
func (p *Patch) UnsetField(field string) {
	p.Unset = append(p.Unset, field)
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}
