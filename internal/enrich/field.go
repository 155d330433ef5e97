package enrich

// FieldStatus describes how one enrichment step ended.
type FieldStatus string

const (
	StatusOK     FieldStatus = "ok"
	StatusAbsent FieldStatus = "absent" // input had nothing to extract, or the step is not configured
	StatusFailed FieldStatus = "failed"
)

// Field is the typed result of one best-effort enrichment step.
type Field[T any] struct {
	Value  T           `json:"value,omitempty"`
	Status FieldStatus `json:"status"`
	Err    error       `json:"-"`
}

func ok[T any](v T) Field[T] {
	return Field[T]{Value: v, Status: StatusOK}
}

func absent[T any]() Field[T] {
	return Field[T]{Status: StatusAbsent}
}

func failed[T any](err error) Field[T] {
	return Field[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the step produced a value.
func (f Field[T]) OK() bool {
	return f.Status == StatusOK
}
