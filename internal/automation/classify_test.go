package automation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

func TestClassifyMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		msg  string
		want schemas.ErrorKind
	}{
		{"select button not found", schemas.ErrorKindFormChanged},
		{"net::ERR_CONNECTION_RESET", schemas.ErrorKindNetwork},
		{"page load error net::ERR_NAME_NOT_RESOLVED", schemas.ErrorKindNetwork},
		{"timeout waiting for #serial after 5s", schemas.ErrorKindTimeout},
		{"reCAPTCHA challenge shown", schemas.ErrorKindCaptcha},
		{"missing required fields: email", schemas.ErrorKindValidation},
		{"account required, cannot automate", schemas.ErrorKindValidation},
		{"validation error on submission: Serial number is invalid", schemas.ErrorKindValidation},
		{"circuit open", schemas.ErrorKindNetwork},
		{"something odd happened", schemas.ErrorKindUnknown},
		{"", schemas.ErrorKindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, schemas.ErrorKindNone, ClassifyError(nil))
	assert.Equal(t, schemas.ErrorKindTimeout, ClassifyError(fmt.Errorf("navigate: %w", context.DeadlineExceeded)))
	assert.Equal(t, schemas.ErrorKindTimeout, ClassifyError(context.Canceled))

	// The message wins over the hint.
	assert.Equal(t, schemas.ErrorKindCaptcha,
		ClassifyError(&AbortError{Kind: schemas.ErrorKindValidation, Message: "captcha on page"}))
	// The hint is used when nothing matches.
	assert.Equal(t, schemas.ErrorKindFormChanged,
		ClassifyError(&AbortError{Kind: schemas.ErrorKindFormChanged, Message: "layout moved"}))
	assert.Equal(t, schemas.ErrorKindUnknown, ClassifyError(errors.New("layout moved")))
}

func TestClassifier_RegisterRule(t *testing.T) {
	t.Parallel()
	c := NewClassifier()
	assert.Equal(t, schemas.ErrorKindUnknown, c.ClassifyMessage("Please sign in with Samsung Account"))

	c.RegisterRule(ClassificationRule{Kind: schemas.ErrorKindValidation, Substrings: []string{"Samsung Account"}})
	assert.Equal(t, schemas.ErrorKindValidation, c.ClassifyMessage("Please sign in with Samsung Account"))

	// Custom rules run before the built-ins.
	c.RegisterRule(ClassificationRule{Kind: schemas.ErrorKindNetwork, Substrings: []string{"gateway timeout"}})
	assert.Equal(t, schemas.ErrorKindNetwork, c.ClassifyMessage("502 gateway timeout"))

	assert.Equal(t, schemas.ErrorKindTimeout, NewClassifier().ClassifyMessage("502 gateway timeout"),
		"rules do not leak between classifiers")
}

var allKinds = map[schemas.ErrorKind]bool{
	schemas.ErrorKindTimeout: true, schemas.ErrorKindCaptcha: true, schemas.ErrorKindFormChanged: true,
	schemas.ErrorKindNetwork: true, schemas.ErrorKindValidation: true, schemas.ErrorKindUnknown: true,
}

// FuzzClassifyMessage checks that classification is total over the six kinds.
func FuzzClassifyMessage(f *testing.F) {
	f.Add([]byte("net::ERR_CONNECTION_RESET"))
	f.Add([]byte("select button not found"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		msg, err := consumer.GetString()
		if err != nil {
			return
		}
		if kind := ClassifyMessage(msg); !allKinds[kind] {
			t.Fatalf("message %q classified as %q", msg, kind)
		}
	})
}
