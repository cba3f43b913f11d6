// Package pki prepares the client's certificate store: the trust and
// revocation list directories plus a self-signed application instance
// certificate when none exists yet.
package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	dirPermissions = 0750
	keyPermissions = 0600

	rsaKeyBits = 2048
	validity   = 5 * 365 * 24 * time.Hour

	company = "CTA-US"
	product = "P2PASClient"
)

// ErrNoCertificatePath is returned when no client certificate file is configured.
var ErrNoCertificatePath = errors.New("pki: client certificate path not configured")

// Locations are the certificate store paths read from the client settings.
type Locations struct {
	TrustList          string
	RevocationList     string
	IssuersCertificate string
	IssuersRevocation  string
	ClientCertificate  string // DER
	ClientPrivateKey   string // PEM
}

// Result reports what Setup did.
type Result struct {
	Created        bool
	ApplicationURI string
}

// Setup creates the store directories and, when the client certificate
// file is missing, a self-signed certificate and its private key.
//
// hostname names the certificate: common name Client_Cpp_SDK@<host>,
// application URI urn:<host>:CTA-US:P2PASClient and one DNS name.
func Setup(loc Locations, hostname string) (*Result, error) {
	if loc.ClientCertificate == "" {
		return nil, ErrNoCertificatePath
	}

	dirs := []string{
		filepath.Dir(loc.ClientCertificate),
		loc.TrustList,
		loc.RevocationList,
		loc.IssuersCertificate,
		loc.IssuersRevocation,
	}
	if loc.ClientPrivateKey != "" {
		dirs = append(dirs, filepath.Dir(loc.ClientPrivateKey))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	result := &Result{ApplicationURI: ApplicationURI(hostname)}

	if _, err := os.Stat(loc.ClientCertificate); err == nil {
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking client certificate: %w", err)
	}

	if loc.ClientPrivateKey == "" {
		return nil, fmt.Errorf("pki: client private key path not configured")
	}

	certDER, key, err := selfSigned(hostname)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(loc.ClientCertificate, certDER, keyPermissions); err != nil {
		return nil, fmt.Errorf("writing client certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(loc.ClientPrivateKey, keyPEM, keyPermissions); err != nil {
		return nil, fmt.Errorf("writing client private key: %w", err)
	}

	result.Created = true
	return result, nil
}

// ApplicationURI returns the application instance URI for a host.
func ApplicationURI(hostname string) string {
	return fmt.Sprintf("urn:%s:%s:%s", hostname, company, product)
}

func selfSigned(hostname string) ([]byte, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	uri, err := url.Parse(ApplicationURI(hostname))
	if err != nil {
		return nil, nil, fmt.Errorf("application uri: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         "Client_Cpp_SDK@" + hostname,
			Organization:       []string{"Organization"},
			OrganizationalUnit: []string{"Unit"},
			Locality:           []string{"LocationName"},
			Province:           []string{"State"},
			Country:            []string{"DE"},
		},
		NotBefore: now,
		NotAfter:  now.Add(validity),
		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment |
			x509.KeyUsageDataEncipherment | x509.KeyUsageContentCommitment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{hostname},
		URIs:                  []*url.URL{uri},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	return der, key, nil
}
