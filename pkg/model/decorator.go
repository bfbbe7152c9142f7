package model

// A Decorator adjusts a FormModel after its layout is loaded. Widget
// resolution is one.
type Decorator interface {
	Decorate(*FormModel) error
}

type DecoratorFunc func(*FormModel) error

func (fn DecoratorFunc) Decorate(form *FormModel) error { return fn(form) }

// Decorate applies decorators in order, skipping nil ones, and stops at the
// first error.
func Decorate(form *FormModel, decorators ...Decorator) error {
	for _, d := range decorators {
		if d == nil {
			continue
		}
		if err := d.Decorate(form); err != nil {
			return err
		}
	}
	return nil
}
