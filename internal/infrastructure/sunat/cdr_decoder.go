package sunat

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
)

// CDRMeta código y descripción extraídos de la constancia de recepción.
// Ambos pueden ser nil aunque el archivo exista.
type CDRMeta struct {
	Code        *string
	Description *string
}

// fallback textual cuando el XML del CDR no se deja parsear
var (
	responseCodeRe = regexp.MustCompile(`(?i)<(?:[A-Za-z0-9]+:)?ResponseCode>([^<]+)</(?:[A-Za-z0-9]+:)?ResponseCode>`)
	descriptionRe  = regexp.MustCompile(`(?i)<(?:[A-Za-z0-9]+:)?Description>([^<]+)</(?:[A-Za-z0-9]+:)?Description>`)
)

// DecodeCDR extrae código y descripción del CDR (ZIP en base64). Nunca
// devuelve error: ante archivo corrupto, sin entrada XML o sin los campos
// esperados quedan nil; el ZIP se conserva para auditoría de todos modos.
func DecodeCDR(cdrZipBase64 string) CDRMeta {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cdrZipBase64))
	if err != nil {
		return CDRMeta{}
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return CDRMeta{}
	}

	var xmlBytes []byte
	for _, file := range zr.File {
		if !strings.HasSuffix(strings.ToLower(file.Name), ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return CDRMeta{}
		}
		xmlBytes, err = io.ReadAll(io.LimitReader(rc, maxResponseBytes))
		rc.Close()
		if err != nil {
			return CDRMeta{}
		}
		break
	}
	if xmlBytes == nil {
		return CDRMeta{}
	}

	code, description := extractResponseFields(xmlBytes)
	return CDRMeta{Code: code, Description: description}
}

// extractResponseFields intenta primero la búsqueda estructural y degrada a
// extracción por patrón si el XML no parsea.
func extractResponseFields(xmlBytes []byte) (code, description *string) {
	doc := etree.NewDocument()
	// SUNAT a veces declara el CDR en ISO-8859-1
	doc.ReadSettings.CharsetReader = latinCharsetReader
	if err := doc.ReadFromBytes(xmlBytes); err == nil && doc.Root() != nil {
		if el := findDescendantLocal(doc.Root(), "ResponseCode"); el != nil {
			code = trimmedPtr(el.Text())
		}
		if el := findDescendantLocal(doc.Root(), "Description"); el != nil {
			description = trimmedPtr(el.Text())
		}
		if code != nil || description != nil {
			return code, description
		}
	}

	if m := responseCodeRe.FindSubmatch(xmlBytes); m != nil {
		code = trimmedPtr(string(m[1]))
	}
	if m := descriptionRe.FindSubmatch(xmlBytes); m != nil {
		description = trimmedPtr(string(m[1]))
	}
	return code, description
}

func latinCharsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return input, nil
}

func trimmedPtr(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
