package sunat

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// Filenames devuelve los nombres de archivo XML y ZIP que exige SUNAT:
// {RUC}-{tipo}-{serie}-{numero} con las extensiones respectivas.
func Filenames(ruc, docTypeCode, serie, numero string) (xmlName, zipName string) {
	base := fmt.Sprintf("%s-%s-%s-%s", ruc, docTypeCode, serie, numero)
	return base + ".xml", base + ".zip"
}

// CompressToZip genera un ZIP DEFLATE con una única entrada. El único error
// posible es el nombre de archivo vacío.
func CompressToZip(filename string, content []byte) ([]byte, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, cpe.NewPackagingError("el nombre del archivo a comprimir es obligatorio").WithStage(cpe.StagePackaging)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create(filename)
	if err != nil {
		zw.Close()
		return nil, cpe.NewPackagingError("crear entrada ZIP: " + err.Error()).WithStage(cpe.StagePackaging)
	}
	if _, err := entry.Write(content); err != nil {
		zw.Close()
		return nil, cpe.NewPackagingError("escribir entrada ZIP: " + err.Error()).WithStage(cpe.StagePackaging)
	}
	if err := zw.Close(); err != nil {
		return nil, cpe.NewPackagingError("cerrar ZIP: " + err.Error()).WithStage(cpe.StagePackaging)
	}
	return buf.Bytes(), nil
}

// CompressToZipBase64 como CompressToZip pero codificado para transporte.
func CompressToZipBase64(filename string, content []byte) (string, error) {
	raw, err := CompressToZip(filename, content)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
