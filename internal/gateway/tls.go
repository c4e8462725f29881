package gateway

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"log/slog"
	"math/big"
	"time"
)

func webTransportTLS(certs []tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: certs,
		NextProtos:   []string{"h3", "webtransport"},
		MinVersion:   tls.VersionTLS13,
	}
}

// loadTLSConfig 配置了证书则加载，否则生成自签名证书
func loadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded TLS certificate", "cert_file", certFile, "key_file", keyFile)
		return webTransportTLS([]tls.Certificate{cert}), nil
	}

	slog.Warn("No TLS certificate configured, using self-signed certificate")
	return generateSelfSignedTLSConfig()
}

// generateSelfSignedTLSConfig 生成内存中的自签名证书（仅用于开发环境）
//
// 浏览器通过 serverCertificateHashes 信任自签名证书，要求 ECDSA 且有效期不超过 14 天。
func generateSelfSignedTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"Bbungkabe Dev"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour * 10),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(certDER)
	slog.Info("Generated dev certificate", "sha256", base64.StdEncoding.EncodeToString(hash[:]))

	return webTransportTLS([]tls.Certificate{{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
	}}), nil
}
