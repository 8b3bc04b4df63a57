package signer_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
	"github.com/facturape/emisor-cpe/internal/infrastructure/sunat/signer"
)

const unsignedUBL = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2" xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2">
  <ext:UBLExtensions>
    <ext:UBLExtension>
      <ext:ExtensionContent/>
    </ext:UBLExtension>
  </ext:UBLExtensions>
  <cbc:ID>F001-123</cbc:ID>
</Invoice>`

// buildTestCredential genera una llave RSA y un certificado autofirmado en
// PEM, con la llave en PKCS#1 como la produce el extractor.
func buildTestCredential(t *testing.T) (*cpe.SigningCredential, *rsa.PrivateKey, *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Comercial Andina SAC"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	cred := &cpe.SigningCredential{
		PrivateKeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}
	return cred, key, cert
}

func TestSignInyectaFirmaVerificable(t *testing.T) {
	cred, _, cert := buildTestCredential(t)
	service := signer.NewService()

	signed, err := service.Sign([]byte(unsignedUBL), cred)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))

	// La firma queda dentro del placeholder y con el Id conocido
	sig := findLocal(doc.Root(), "Signature")
	require.NotNil(t, sig, "ds:Signature debe existir")
	assert.Equal(t, signer.SignatureID, sig.SelectAttrValue("Id", ""))
	assert.Equal(t, "ExtensionContent", localTag(sig.Parent()))

	canonicalizer := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	// 1) El digest corresponde al documento sin firma
	unsignedDoc := etree.NewDocument()
	require.NoError(t, unsignedDoc.ReadFromString(unsignedUBL))
	canonical, err := canonicalizer.Canonicalize(unsignedDoc.Root())
	require.NoError(t, err)
	wantDigest := sha256.Sum256(canonical)

	digestEl := findLocal(sig, "DigestValue")
	require.NotNil(t, digestEl)
	gotDigest, err := base64.StdEncoding.DecodeString(strings.TrimSpace(digestEl.Text()))
	require.NoError(t, err)
	assert.Equal(t, wantDigest[:], gotDigest)

	// 2) SignatureValue verifica contra el certificado
	signedInfo := findLocal(sig, "SignedInfo")
	require.NotNil(t, signedInfo)
	canonicalSignedInfo, err := canonicalizer.Canonicalize(signedInfo)
	require.NoError(t, err)
	signedInfoHash := sha256.Sum256(canonicalSignedInfo)

	sigValueEl := findLocal(sig, "SignatureValue")
	require.NotNil(t, sigValueEl)
	sigValue, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sigValueEl.Text()))
	require.NoError(t, err)

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, signedInfoHash[:], sigValue))

	// 3) El certificado viaja en KeyInfo
	certEl := findLocal(sig, "X509Certificate")
	require.NotNil(t, certEl)
	certDER, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certEl.Text()))
	require.NoError(t, err)
	assert.Equal(t, cert.Raw, certDER)
}

func TestSignSinPlaceholderEsFatal(t *testing.T) {
	cred, _, _ := buildTestCredential(t)
	service := signer.NewService()

	sinPlaceholder := `<?xml version="1.0" encoding="UTF-8"?><Invoice xmlns="urn:x"><ID>F001-1</ID></Invoice>`
	_, err := service.Sign([]byte(sinPlaceholder), cred)
	require.Error(t, err)
	assert.Equal(t, 500, cpe.StatusOf(err))
	assert.Equal(t, cpe.StageSigning, cpe.StageOf(err))
}

func TestSignXMLVacio(t *testing.T) {
	cred, _, _ := buildTestCredential(t)
	_, err := signer.NewService().Sign(nil, cred)
	require.Error(t, err)
}

func TestEnsureSignatureIDIdempotente(t *testing.T) {
	sinID := []byte(`<doc><ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#"><ds:SignedInfo/></ds:Signature></doc>`)

	patched := signer.EnsureSignatureID(sinID)
	assert.Contains(t, string(patched), `<ds:Signature Id="SignatureSP"`)

	// Aplicarlo de nuevo no cambia nada
	again := signer.EnsureSignatureID(patched)
	assert.Equal(t, patched, again)

	// Sin firma tampoco toca nada
	plain := []byte(`<doc/>`)
	assert.Equal(t, plain, signer.EnsureSignatureID(plain))
}

func TestSignFirmaYaLlevaID(t *testing.T) {
	cred, _, _ := buildTestCredential(t)
	signed, err := signer.NewService().Sign([]byte(unsignedUBL), cred)
	require.NoError(t, err)

	// El parche textual sobre la salida real es un no-op
	assert.Equal(t, signed, signer.EnsureSignatureID(signed))
}

func findLocal(el *etree.Element, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if localTag(child) == local {
			return child
		}
		if found := findLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}

func localTag(el *etree.Element) string {
	if el == nil {
		return ""
	}
	if i := strings.LastIndex(el.Tag, ":"); i >= 0 {
		return el.Tag[i+1:]
	}
	return el.Tag
}
