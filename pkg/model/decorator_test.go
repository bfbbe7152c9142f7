package model_test

import (
	"errors"
	"testing"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

func TestDecorateStopsAtFirstError(t *testing.T) {
	var calls []string
	title := model.DecoratorFunc(func(f *model.FormModel) error {
		calls = append(calls, "title")
		f.Title = "Asset Register"
		return nil
	})
	boom := errors.New("boom")
	failing := model.DecoratorFunc(func(*model.FormModel) error {
		calls = append(calls, "failing")
		return boom
	})
	never := model.DecoratorFunc(func(*model.FormModel) error {
		calls = append(calls, "never")
		return nil
	})

	form := assetForm()
	if err := model.Decorate(&form, title, nil, failing, never); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if form.Title != "Asset Register" || len(calls) != 2 {
		t.Fatalf("unexpected state title=%q calls=%v", form.Title, calls)
	}
}
