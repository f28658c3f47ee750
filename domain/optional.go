package domain

import "github.com/bytedance/sonic"

// Optional distinguishes an absent JSON field from an explicit null. An
// absent field leaves the stored value untouched; null clears it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := sonic.ConfigStd.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
