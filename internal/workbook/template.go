package workbook

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"strings"
)

// TemplateVersion identifies the bundled GSTR-1 offline workbook layout
const TemplateVersion = "2024.1"

//go:embed templates/gstr1_template.xlsx.b64
var encodedTemplate string

// DefaultTemplate decodes the bundled template. Each call returns a fresh copy.
func DefaultTemplate() ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(encodedTemplate), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateDecode, err)
	}
	return blob, nil
}
