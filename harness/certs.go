package harness

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// CertAuthority is a self-signed certificate authority for one trust domain
// (server, client, or proxy). Tests typically hold one per domain for the
// whole run and issue leaf certificates per test.
type CertAuthority struct {
	cert    *x509.Certificate
	key     *ecdsa.PrivateKey
	certPEM []byte
	serial  int64
}

// LeafCert is a certificate issued by a CertAuthority for one hostname,
// together with its private key.
type LeafCert struct {
	CertPEM string
	KeyPEM  string
	tlsCert tls.Certificate
}

// NewCertAuthority generates a CA keypair and self-signed certificate.
func NewCertAuthority(organization string) (*CertAuthority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating CA key: %w", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{organization},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("creating CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &CertAuthority{
		cert:    cert,
		key:     key,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		serial:  1,
	}, nil
}

// CertPEM returns the CA certificate as a PEM string.
func (ca *CertAuthority) CertPEM() string {
	return string(ca.certPEM)
}

// Pool returns a certificate pool containing only this CA, for peer
// verification.
func (ca *CertAuthority) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.cert)
	return pool
}

// IssueCert issues a leaf certificate valid for the given hostname (or IP
// address literal), usable for both server and client authentication.
func (ca *CertAuthority) IssueCert(hostname string) (*LeafCert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating leaf key: %w", err)
	}
	ca.serial++
	template := &x509.Certificate{
		SerialNumber: big.NewInt(ca.serial),
		Subject: pkix.Name{
			Organization: ca.cert.Subject.Organization,
			CommonName:   hostname,
		},
		NotBefore:   time.Now().Add(-time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	if ip := net.ParseIP(hostname); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{hostname}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		return nil, fmt.Errorf("creating leaf certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &LeafCert{
		CertPEM: string(certPEM),
		KeyPEM:  string(keyPEM),
		tlsCert: tlsCert,
	}, nil
}

// ServerTLSConfig builds a server-side TLS config presenting this leaf.
func (c *LeafCert) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{c.tlsCert},
		MinVersion:   tls.VersionTLS12,
	}
}

// ClientAuthTLSConfig builds a server-side TLS config that presents the leaf
// and additionally requires peer certificates signed by clientCA.
func (c *LeafCert) ClientAuthTLSConfig(clientCA *CertAuthority) *tls.Config {
	cfg := c.ServerTLSConfig()
	cfg.ClientCAs = clientCA.Pool()
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg
}

// CombinedPEMFile writes the private key and certificate into one temporary
// file (the format the proxy's cert/key flags share) and returns its path and
// a cleanup function that always removes the file.
func (c *LeafCert) CombinedPEMFile() (string, func(), error) {
	return writeTempPEM("fixture-cert-*.pem", c.KeyPEM+c.CertPEM)
}

// CertPEMFile writes the CA certificate into a temporary file and returns its
// path and a cleanup function that always removes the file.
func (ca *CertAuthority) CertPEMFile() (string, func(), error) {
	return writeTempPEM("fixture-ca-*.pem", ca.CertPEM())
}

func writeTempPEM(pattern, contents string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.WriteString(contents); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
