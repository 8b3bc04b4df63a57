package sunat_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat"
)

func TestFilenames(t *testing.T) {
	xmlName, zipName := sunat.Filenames(testRUC, "01", "F001", "123")
	assert.Equal(t, testRUC+"-01-F001-123.xml", xmlName)
	assert.Equal(t, testRUC+"-01-F001-123.zip", zipName)
}

func TestCompressToZipRoundTrip(t *testing.T) {
	content := []byte("<Invoice>contenido</Invoice>")
	raw, err := sunat.CompressToZip("documento.xml", content)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "documento.xml", zr.File[0].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCompressToZipNombreVacio(t *testing.T) {
	_, err := sunat.CompressToZip("   ", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 500, cpe.StatusOf(err))
	assert.Equal(t, cpe.StagePackaging, cpe.StageOf(err))
}

func TestCompressToZipBase64(t *testing.T) {
	encoded, err := sunat.CompressToZipBase64("documento.xml", []byte("x"))
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)
}
