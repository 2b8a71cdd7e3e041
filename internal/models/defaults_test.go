package models_test

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

func TestDefaultPreferences(t *testing.T) {
	p := models.DefaultPreferences()
	if p.Collapsed == nil || len(p.Collapsed) != 0 {
		t.Errorf("Collapsed = %v, want empty non-nil", p.Collapsed)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"collapsed":[]}` {
		t.Errorf("JSON = %s, want {\"collapsed\":[]}", data)
	}
}

func TestPreferences_Normalize(t *testing.T) {
	p := models.Preferences{Collapsed: []models.SectionPref{
		{Port: 4}, {Port: 0}, {Port: 2, Mixer: true}, {Port: 4}, {Port: -1, Mixer: true},
		{Port: 2}, {Port: 70000}, {Port: 1, Mixer: true},
	}}
	p.Normalize()
	want := []models.SectionPref{{Port: 1, Mixer: true}, {Port: 2}, {Port: 2, Mixer: true}, {Port: 4}}
	if !slices.Equal(p.Collapsed, want) {
		t.Errorf("Collapsed = %v, want %v", p.Collapsed, want)
	}

	var empty models.Preferences
	empty.Normalize()
	if empty.Collapsed == nil {
		t.Error("Normalize left Collapsed nil")
	}
}

func TestSectionPref_JSON(t *testing.T) {
	data, err := json.Marshal(models.Preferences{Collapsed: []models.SectionPref{{Port: 1}, {Port: 1, Mixer: true}}})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"collapsed":[{"port":1},{"port":1,"mixer":true}]}`; string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}

func TestPreferences_DeepCopy(t *testing.T) {
	p := models.Preferences{Collapsed: []models.SectionPref{{Port: 1}, {Port: 3, Mixer: true}}}
	cp := p.DeepCopy()
	cp.Collapsed[0].Port = 9
	if p.Collapsed[0].Port != 1 {
		t.Error("DeepCopy shares the Collapsed slice")
	}
}
