package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relationForm struct {
	Name    string
	Table   string
	Kind    string
	Columns []string
}

func relationRules() Rules {
	return Rules{
		"Name":    {Required.Msg("name is required"), Identifier.Optional()},
		"Table":   {Required, Identifier.Optional()},
		"Kind":    {In("one", "many")},
		"Columns": {Each(Identifier).Optional()},
	}
}

func TestRules_ValidateStruct(t *testing.T) {
	err := relationRules().Validate(&relationForm{Name: "author", Table: "users", Kind: "one"})
	assert.NoError(t, err)

	err = relationRules().Validate(relationForm{Table: "users; DROP", Kind: "some", Columns: []string{"id", "bad col"}})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "name is required", verrs["Name"][0].Error())
	assert.Len(t, verrs["Table"], 1)
	assert.Len(t, verrs["Kind"], 1)
	assert.Contains(t, verrs["Columns"][0].Error(), "element 1")
}

func TestRules_ValidateMap(t *testing.T) {
	err := relationRules().ValidateMap(map[string]any{"Table": "posts", "Kind": "many"})
	require.Error(t, err)
	assert.Equal(t, "Name: name is required", err.Error())

	assert.NoError(t, relationRules().ValidateMap(map[string]any{"Name": "posts", "Table": "wp_posts", "Kind": "many"}))
}

func TestRules_RejectsNonStruct(t *testing.T) {
	assert.Error(t, Rules{}.Validate(42))
	assert.NoError(t, Rules{}.Validate(nil))
}

func TestValidationErrors_SortedMessage(t *testing.T) {
	errs := ValidationErrors{
		"b": {errors.New("second")},
		"a": {errors.New("first")},
	}
	assert.Equal(t, "a: first; b: second", errs.Error())
}

func TestIdentifier(t *testing.T) {
	for _, ok := range []string{"id", "cat_id", "wp_posts.id", "_x1"} {
		assert.NoError(t, Identifier.Validate(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "a b", "a;b", "a.b.c", "x'--"} {
		assert.Error(t, Identifier.Validate(bad), bad)
	}
	assert.NoError(t, Identifier.Optional().Validate(""))
}

func TestRuleModifiers(t *testing.T) {
	rule := In("one", "many").When(func(v any) bool { return v != "skip" })
	assert.NoError(t, rule.Validate("skip"))
	assert.Error(t, rule.Validate("other"))

	assert.EqualError(t, Required.Msg("missing").Validate(nil), "missing")
}

func TestValidate(t *testing.T) {
	fail := errors.New("fail")
	err := Validate("x",
		func(any) error { return nil },
		func(any) error { return fail },
	)
	assert.ErrorIs(t, err, fail)
}
