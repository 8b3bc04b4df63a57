package signer

import (
	"encoding/base64"
	"encoding/pem"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// ExtractCredential decodifica un contenedor PKCS#12 (base64) protegido por
// contraseña y devuelve la llave privada y el certificado en PEM.
//
// Limitación conocida: solo se usan la primera bolsa de llave y la primera
// bolsa de certificado; contenedores con cadenas intermedias no se
// desambiguan. Una contraseña incorrecta y un contenedor corrupto producen
// el mismo error genérico de descifrado.
func ExtractCredential(pfxBase64, passphrase string) (*cpe.SigningCredential, error) {
	if strings.TrimSpace(pfxBase64) == "" {
		return nil, cpe.NewCredentialError("falta el contenedor del certificado")
	}
	if passphrase == "" {
		return nil, cpe.NewCredentialError("falta la contraseña del certificado")
	}

	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(pfxBase64))
	if err != nil {
		return nil, cpe.NewCredentialError("el contenedor del certificado no es base64 válido")
	}

	blocks, err := pkcs12.ToPEM(raw, passphrase)
	if err != nil {
		return nil, cpe.NewCredentialError("no se pudo descifrar el certificado (contraseña incorrecta o contenedor corrupto)")
	}

	var keyPEM, certPEM []byte
	for _, block := range blocks {
		switch {
		case strings.Contains(block.Type, "PRIVATE KEY") && keyPEM == nil:
			keyPEM = pem.EncodeToMemory(block)
		case block.Type == "CERTIFICATE" && certPEM == nil:
			certPEM = pem.EncodeToMemory(block)
		}
	}
	if keyPEM == nil {
		return nil, cpe.NewCredentialError("el contenedor no tiene llave privada")
	}
	if certPEM == nil {
		return nil, cpe.NewCredentialError("el contenedor no tiene certificado")
	}

	return &cpe.SigningCredential{
		PrivateKeyPEM:  keyPEM,
		CertificatePEM: certPEM,
	}, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
