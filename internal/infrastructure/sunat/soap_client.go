package sunat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/facturape/emisor-cpe/internal/domain/cpe"
)

// Endpoints oficiales del servicio billService.
const (
	BetaBillServiceURL = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"
	ProdBillServiceURL = "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"
)

// DefaultSOAPTimeout plazo por defecto de la llamada sendBill.
const DefaultSOAPTimeout = 45 * time.Second

// tope de lectura del cuerpo de respuesta
const maxResponseBytes = 10 << 20

// SOAPConfig configuración del cliente SOAP. BetaURL y ProdURL permiten
// apuntar a servidores de prueba; vacíos usan los endpoints oficiales.
type SOAPConfig struct {
	DefaultEnv string // BETA o PROD
	Timeout    time.Duration
	BetaURL    string
	ProdURL    string
}

// SOAPClient cliente del servicio sendBill de SUNAT (SOAP 1.1 con
// WS-Security UsernameToken). No requiere librerías SOAP de terceros.
type SOAPClient struct {
	cfg    SOAPConfig
	client *http.Client
}

// NewSOAPClient crea el cliente con el plazo configurado.
func NewSOAPClient(cfg SOAPConfig) *SOAPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSOAPTimeout
	}
	return &SOAPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendBillRequest parámetros de un envío sendBill.
type SendBillRequest struct {
	RUC         string
	SOLUser     string
	SOLPassword string
	ZipFilename string
	ZipBase64   string
	Env         string // override por llamada; vacío usa el default
}

// SendBillResponse CDR en base64 más el cuerpo crudo para auditoría.
type SendBillResponse struct {
	CDRZipBase64 string
	RawXML       string
}

// SendBill envía el ZIP firmado. El username del UsernameToken es la
// concatenación RUC+usuario SOL sin separador; la contraseña viaja en claro
// dentro del canal TLS.
func (c *SOAPClient) SendBill(ctx context.Context, req *SendBillRequest) (*SendBillResponse, error) {
	username := strings.TrimSpace(req.RUC) + strings.TrimSpace(req.SOLUser)
	if username == "" || req.SOLPassword == "" {
		return nil, cpe.NewValidationError("faltan credenciales SOL para el envío").WithStage(cpe.StageTransmitting)
	}

	envelope := buildSendBillEnvelope(username, req.SOLPassword, req.ZipFilename, req.ZipBase64)
	url := c.resolveURL(req.Env)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(envelope))
	if err != nil {
		return nil, cpe.NewTransportError(500, "construir petición SOAP: "+err.Error(), "").WithStage(cpe.StageTransmitting)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, cpe.NewTimeoutError("SUNAT no respondió dentro del plazo").WithStage(cpe.StageTransmitting)
		}
		return nil, cpe.NewTransportError(502, "falla de conexión con SUNAT", "").WithStage(cpe.StageTransmitting)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, cpe.NewTransportError(502, "leer respuesta de SUNAT", "").WithStage(cpe.StageTransmitting)
	}
	raw := string(body)

	// SOAP fault: error de autenticación o validación, falla del cliente.
	// La presencia del nodo manda aunque venga sin texto.
	if fault, ok := lookupTextLocal(body, "faultstring"); ok {
		if fault == "" {
			fault = "SUNAT SOAP fault"
		}
		return nil, cpe.NewTransportError(400, fault, raw).WithStage(cpe.StageTransmitting)
	}

	appResp := extractTextLocal(body, "applicationResponse")
	if appResp == "" {
		status := resp.StatusCode
		if status < 400 {
			status = 500
		}
		return nil, cpe.NewTransportError(status, "SUNAT no devolvió applicationResponse", raw).WithStage(cpe.StageTransmitting)
	}

	return &SendBillResponse{CDRZipBase64: appResp, RawXML: raw}, nil
}

func (c *SOAPClient) resolveURL(env string) string {
	resolved := strings.ToUpper(strings.TrimSpace(env))
	if resolved == "" {
		resolved = strings.ToUpper(strings.TrimSpace(c.cfg.DefaultEnv))
	}
	if resolved == "PROD" {
		if c.cfg.ProdURL != "" {
			return c.cfg.ProdURL
		}
		return ProdBillServiceURL
	}
	if c.cfg.BetaURL != "" {
		return c.cfg.BetaURL
	}
	return BetaBillServiceURL
}

func buildSendBillEnvelope(username, password, zipFilename, zipBase64 string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ser="http://service.sunat.gob.pe" xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
  <soapenv:Header>
    <wsse:Security>
      <wsse:UsernameToken>
        <wsse:Username>%s</wsse:Username>
        <wsse:Password>%s</wsse:Password>
      </wsse:UsernameToken>
    </wsse:Security>
  </soapenv:Header>
  <soapenv:Body>
    <ser:sendBill>
      <fileName>%s</fileName>
      <contentFile>%s</contentFile>
    </ser:sendBill>
  </soapenv:Body>
</soapenv:Envelope>`,
		escapeXML(username), escapeXML(password), escapeXML(zipFilename), escapeXML(zipBase64))
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// extractTextLocal devuelve el texto del primer elemento cuyo nombre local
// coincide, tolerando variantes con prefijo de namespace.
func extractTextLocal(xmlBytes []byte, local string) string {
	text, _ := lookupTextLocal(xmlBytes, local)
	return text
}

// lookupTextLocal como extractTextLocal pero además reporta si el elemento
// existe, para distinguir un nodo vacío de uno ausente.
func lookupTextLocal(xmlBytes []byte, local string) (string, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return "", false
	}
	root := doc.Root()
	if root == nil {
		return "", false
	}
	el := findDescendantLocal(root, local)
	if el == nil {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}

func findDescendantLocal(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		tag := child.Tag
		if i := strings.LastIndex(tag, ":"); i >= 0 {
			tag = tag[i+1:]
		}
		if tag == local {
			return child
		}
		if found := findDescendantLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
