package sunat_test

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat"
)

func buildCDRZip(t *testing.T, entryName, xml string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entryName)
	require.NoError(t, err)
	_, err = w.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

const cdrXML = `<?xml version="1.0" encoding="UTF-8"?>
<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2" xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>0</cbc:ResponseCode>
      <cbc:Description>La Factura numero F001-123, ha sido aceptada</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
</ar:ApplicationResponse>`

func TestDecodeCDRValido(t *testing.T) {
	meta := sunat.DecodeCDR(buildCDRZip(t, "R-20100070970-01-F001-123.xml", cdrXML))
	require.NotNil(t, meta.Code)
	assert.Equal(t, "0", *meta.Code)
	require.NotNil(t, meta.Description)
	assert.Contains(t, *meta.Description, "aceptada")
}

func TestDecodeCDRNuncaFalla(t *testing.T) {
	// Bytes arbitrarios, vacío y base64 inválido degradan a campos nil
	casos := []string{
		"",
		"   ",
		"no-es-base64!!!",
		base64.StdEncoding.EncodeToString([]byte("bytes aleatorios que no son zip")),
	}
	for _, caso := range casos {
		meta := sunat.DecodeCDR(caso)
		assert.Nil(t, meta.Code)
		assert.Nil(t, meta.Description)
	}
}

func TestDecodeCDRZipSinXML(t *testing.T) {
	meta := sunat.DecodeCDR(buildCDRZip(t, "leeme.txt", "sin xml"))
	assert.Nil(t, meta.Code)
	assert.Nil(t, meta.Description)
}

func TestDecodeCDRXMLSinCampos(t *testing.T) {
	meta := sunat.DecodeCDR(buildCDRZip(t, "r.xml", `<?xml version="1.0"?><ApplicationResponse/>`))
	assert.Nil(t, meta.Code)
	assert.Nil(t, meta.Description)
}

func TestDecodeCDRFallbackPorPatron(t *testing.T) {
	// XML malformado que aún contiene los campos: cae a la extracción textual
	malformado := `<Response><cbc:ResponseCode>2324</cbc:ResponseCode><cbc:Description>Rechazada</cbc:Description>`
	meta := sunat.DecodeCDR(buildCDRZip(t, "r.xml", malformado))
	require.NotNil(t, meta.Code)
	assert.Equal(t, "2324", *meta.Code)
	require.NotNil(t, meta.Description)
	assert.Equal(t, "Rechazada", *meta.Description)
}

func TestDecodeCDRRechazo(t *testing.T) {
	xml := `<?xml version="1.0"?><ar:ApplicationResponse xmlns:ar="urn:x" xmlns:cbc="urn:y"><cbc:ResponseCode>2324</cbc:ResponseCode><cbc:Description>RUC no habilitado</cbc:Description></ar:ApplicationResponse>`
	meta := sunat.DecodeCDR(buildCDRZip(t, "r.xml", xml))
	require.NotNil(t, meta.Code)
	assert.Equal(t, "2324", *meta.Code)
}
