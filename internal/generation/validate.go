package generation

import (
	"encoding/base64"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxUploadBytes caps worksheet images and quiz submissions.
const MaxUploadBytes = 5 * 1024 * 1024

// AcceptedImageTypes are the MIME types allowed for worksheet source images.
var AcceptedImageTypes = []string{"image/jpeg", "image/png"}

var (
	setupOnce sync.Once
	validate  *govalidator.Validate
	trans     ut.Translator
)

func engine() (*govalidator.Validate, ut.Translator) {
	setupOnce.Do(func() {
		validate = govalidator.New(govalidator.WithRequiredStructEnabled())
		// Report JSON field names so errors line up with the form.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(validate, trans)
	})
	return validate, trans
}

// Validate checks a request against its form rules and returns every
// violation. A nil result means the request may be sent.
func Validate(req interface{}) []FieldError {
	v, tr := engine()

	var out []FieldError
	if err := v.Struct(req); err != nil {
		var ve govalidator.ValidationErrors
		if !errors.As(err, &ve) {
			return []FieldError{{Field: "detail", Message: err.Error()}}
		}
		for _, fe := range ve {
			out = append(out, FieldError{Field: fe.Field(), Message: fe.Translate(tr)})
		}
	}

	switch r := req.(type) {
	case WorksheetImageRequest:
		out = append(out, checkImage(r.ImageBase64)...)
	case *WorksheetImageRequest:
		out = append(out, checkImage(r.ImageBase64)...)
	}
	return out
}

func checkImage(dataURI string) []FieldError {
	if dataURI == "" {
		return nil
	}
	mimeType, payload := splitDataURI(dataURI)
	if decodedLen(payload) > MaxUploadBytes {
		errs := []FieldError{{Field: "image_base64", Message: "Max file size is 5MB."}}
		if mimeType != "" && !acceptedImage(mimeType) {
			errs = append(errs, FieldError{Field: "image_base64", Message: "Only .jpg and .png files are accepted."})
		}
		return errs
	}

	// A declared type is trusted, but the payload still has to decode.
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return []FieldError{{Field: "image_base64", Message: "Image is not valid base64."}}
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(raw).String()
	}
	if !acceptedImage(mimeType) {
		return []FieldError{{Field: "image_base64", Message: "Only .jpg and .png files are accepted."}}
	}
	return nil
}

func acceptedImage(mimeType string) bool {
	for _, t := range AcceptedImageTypes {
		if strings.EqualFold(mimeType, t) {
			return true
		}
	}
	return false
}

// splitDataURI returns the declared MIME type (empty when there is no data
// URI header) and the base64 payload.
func splitDataURI(s string) (string, string) {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return "", s
	}
	header, payload := s[:i], s[i+1:]
	if !strings.HasPrefix(header, "data:") {
		return "", payload
	}
	mimeType, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	return mimeType, payload
}

// StripDataURIPrefix drops everything up to and including the first comma.
// Input without a comma is returned unchanged.
func StripDataURIPrefix(s string) string {
	return s[strings.IndexByte(s, ',')+1:]
}

func decodedLen(payload string) int {
	pad := 0
	for i := len(payload) - 1; i >= 0 && pad < 2 && payload[i] == '='; i-- {
		pad++
	}
	return base64.StdEncoding.DecodedLen(len(payload)) - pad
}

// AbsoluteURL reports whether s is an absolute http(s) address.
func AbsoluteURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
