package cmd

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

func TestFieldsCmd(t *testing.T) {
	t.Setenv("SNAPREG_DATABASE_URL", "")
	page := writeFile(t, "form.html", `<html><body>`+acmeForm+`
<label for="ph">Phone</label><input id="ph" type="tel" name="phone">
</body></html>`)

	t.Run("detection only", func(t *testing.T) {
		out, err := executeCommand(t, "fields", "--html", page)
		require.NoError(t, err)

		var plan FieldPlan
		require.NoError(t, json.Unmarshal([]byte(out), &plan))
		assert.Len(t, plan.Detected, 5)
		assert.Empty(t, plan.Mappings)
	})

	t.Run("with data", func(t *testing.T) {
		data := writeFile(t, "data.json", registrationJSON)
		out, err := executeCommand(t, "fields", "--html", page, "--data", data)
		require.NoError(t, err)

		var plan FieldPlan
		require.NoError(t, json.Unmarshal([]byte(out), &plan))
		got := map[schemas.Attribute]string{}
		for _, m := range plan.Mappings {
			got[m.Attribute] = m.Value
		}
		assert.Equal(t, "Ada", got[schemas.AttrFirstName])
		assert.Equal(t, "Lovelace", got[schemas.AttrLastName])
		assert.Equal(t, "ada@example.com", got[schemas.AttrEmail])
		assert.Equal(t, []string{"phone"}, plan.Unmapped, "no phone number in the data")
	})

	t.Run("html is required", func(t *testing.T) {
		_, err := executeCommand(t, "fields")
		assert.Error(t, err)
	})
}
