package banter

import (
	"reflect"
	"testing"
)

func TestExtractEntities(t *testing.T) {
	got := ExtractEntities("Call me at 42 or 3.14, visit https://example.com/x and mail bob@mail.com, cc @alice")

	if want := []float64{42, 3.14}; !reflect.DeepEqual(got.Numbers, want) {
		t.Errorf("Numbers = %v, want %v", got.Numbers, want)
	}
	if want := []string{"https://example.com/x"}; !reflect.DeepEqual(got.URLs, want) {
		t.Errorf("URLs = %v, want %v", got.URLs, want)
	}
	if want := []string{"bob@mail.com"}; !reflect.DeepEqual(got.Emails, want) {
		t.Errorf("Emails = %v, want %v", got.Emails, want)
	}
	if want := []string{"alice"}; !reflect.DeepEqual(got.Mentions, want) {
		t.Errorf("Mentions = %v, want %v", got.Mentions, want)
	}
	if got.Empty() {
		t.Error("Empty() = true, want false")
	}
}

func TestExtractEntities_MentionAtStart(t *testing.T) {
	got := ExtractEntities("@bob hi")

	if want := []string{"bob"}; !reflect.DeepEqual(got.Mentions, want) {
		t.Errorf("Mentions = %v, want %v", got.Mentions, want)
	}
}

func TestExtractEntities_None(t *testing.T) {
	got := ExtractEntities("просто текст без всего")

	if !got.Empty() {
		t.Errorf("ExtractEntities() = %+v, want empty", got)
	}
}
