package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturape/emisor-cpe/pkg/sunat"
)

func TestNormalizeRUC(t *testing.T) {
	// Elimina todo lo que no sea dígito y trunca a 11
	assert.Equal(t, "20100070970", sunat.NormalizeRUC(" 20100070970 "))
	assert.Equal(t, "20100070970", sunat.NormalizeRUC("20-10007097-0"))
	assert.Equal(t, "20100070970", sunat.NormalizeRUC("201000709701234"))
	assert.Equal(t, "", sunat.NormalizeRUC("sin digitos"))
}

func TestIsValidRUC(t *testing.T) {
	// RUCs reales con dígito verificador correcto
	assert.True(t, sunat.IsValidRUC("20100070970"))
	assert.True(t, sunat.IsValidRUC("10467793549"))

	assert.False(t, sunat.IsValidRUC("20100070971"))  // verificador alterado
	assert.False(t, sunat.IsValidRUC("2010007097"))   // 10 dígitos
	assert.False(t, sunat.IsValidRUC("201000709700")) // 12 dígitos
	assert.False(t, sunat.IsValidRUC("2010007097a"))
	assert.False(t, sunat.IsValidRUC(""))
}

func TestDocTypeFromLabel(t *testing.T) {
	assert.Equal(t, sunat.DocTypeFactura, sunat.DocTypeFromLabel("FACTURA"))
	assert.Equal(t, sunat.DocTypeBoleta, sunat.DocTypeFromLabel("BOLETA"))
	assert.Equal(t, "", sunat.DocTypeFromLabel("NOTA_CREDITO"))
	assert.Equal(t, "", sunat.DocTypeFromLabel(""))
}

func TestCustomerSchemeID(t *testing.T) {
	assert.Equal(t, "6", sunat.CustomerSchemeID("RUC"))
	assert.Equal(t, "1", sunat.CustomerSchemeID("DNI"))
	assert.Equal(t, "0", sunat.CustomerSchemeID("CE"))
	assert.Equal(t, "0", sunat.CustomerSchemeID(""))
}
