package workbook

import "errors"

// Template errors
var (
	ErrTemplateDecode    = errors.New("embedded template is not valid base64")
	ErrTemplateCorrupted = errors.New("template is not a readable xlsx package")
	ErrSheetNotFound     = errors.New("sheet not found in template")
	ErrKeyColumnNotFound = errors.New("key column not found in sheet header")
)
