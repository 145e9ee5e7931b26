package fields

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

const registrationFormHTML = `<!DOCTYPE html>
<html><body>
<form id="reg">
  <label for="fn">First Name</label>
  <input id="fn" name="first_name" type="text" required>

  <label>Last name <input name="lname"></label>

  <input type="email" id="contact-email" aria-label="Your e-mail" class="form-control field-required">

  <label>Phone</label>
  <input type="tel" data-name="phoneNum">

  <span id="zip-lbl">Postal</span><span id="zip-hint">code</span>
  <input name="zip" aria-labelledby="zip-lbl zip-hint" aria-required="true">

  <select name="state">
    <option value="">Select a state</option>
    <option value="CA">California</option>
    <option>New York</option>
  </select>

  <textarea name="comments" placeholder="Anything else?"></textarea>

  <fieldset>
    <legend>Newsletter</legend>
    <input type="radio" name="news" value="yes"> <input type="radio" name="news" value="no" required>
  </fieldset>

  <input type="checkbox" name="terms">
  <input type="hidden" name="csrf" value="x">
  <input type="password" name="pw">
  <input type="submit" value="Go">
  <input type="text" name="disabled_field" disabled>
  <input type="text">
  <div><input type="text" placeholder="Purchase date"></div>
</form>
</body></html>`

func TestDetector_DetectHTML(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))
	got, err := d.DetectHTML(registrationFormHTML)
	require.NoError(t, err)

	want := []schemas.DetectedField{
		{Name: "first_name", Selector: `input[name="first_name"]`, Kind: schemas.InputText, Label: "First Name", Required: true},
		{Name: "lname", Selector: `input[name="lname"]`, Kind: schemas.InputText, Label: "Last name"},
		{Name: "contact-email", Selector: "#contact-email", Kind: schemas.InputEmail, Label: "Your e-mail", Required: true},
		{Name: "phoneNum", Selector: "html > body > form:nth-of-type(1) > input:nth-of-type(3)", Kind: schemas.InputTel, Label: "Phone"},
		{Name: "zip", Selector: `input[name="zip"]`, Kind: schemas.InputText, Label: "Postal code", Required: true},
		{Name: "state", Selector: `select[name="state"]`, Kind: schemas.InputSelect, Options: []schemas.SelectOption{
			{Value: "", Label: "Select a state"},
			{Value: "CA", Label: "California"},
			{Value: "New York", Label: "New York"},
		}},
		{Name: "comments", Selector: `textarea[name="comments"]`, Kind: schemas.InputTextarea, Placeholder: "Anything else?"},
		{Name: "news", Selector: `input[type="radio"][name="news"]`, Kind: schemas.InputRadio, Label: "Newsletter", Required: true,
			Options: []schemas.SelectOption{{Value: "yes"}, {Value: "no"}}},
		{Name: "terms", Selector: `input[name="terms"]`, Kind: schemas.InputCheckbox},
		{Name: "", Selector: "html > body > form:nth-of-type(1) > div:nth-of-type(1) > input:nth-of-type(1)", Kind: schemas.InputText, Placeholder: "Purchase date"},
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("detected fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDetector_DropsUnidentifiableControls(t *testing.T) {
	d := NewDetector(nil)
	got, err := d.DetectHTML(`<form><input type="text"><select><option>1</option></select></form>`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type htmlSourceFunc func(ctx context.Context) (string, error)

func (f htmlSourceFunc) HTML(ctx context.Context) (string, error) { return f(ctx) }

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(nil)

	fields, err := d.Detect(context.Background(), htmlSourceFunc(func(context.Context) (string, error) {
		return `<input name="email" type="email">`, nil
	}))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, schemas.InputEmail, fields[0].Kind)

	_, err = d.Detect(context.Background(), htmlSourceFunc(func(context.Context) (string, error) {
		return "", errors.New("target closed")
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
}

func TestFieldSelector_Quoting(t *testing.T) {
	d := NewDetector(nil)
	got, err := d.DetectHTML(`<input name='a"b' type="text"><input id="1bad" placeholder="x">`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, `input[name="a\"b"]`, got[0].Selector)
	assert.Equal(t, `input[id="1bad"]`, got[1].Selector)
}
