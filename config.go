package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"chatwidget/config"
)

// resolveTLS returns the certificate pair to serve with, or empty strings
// for plain HTTP. Configured paths win; discovery only runs when asked for.
func resolveTLS(cfg *config.Config, discover bool) (certFile, keyFile string) {
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		return cfg.Server.TLSCert, cfg.Server.TLSKey
	}
	if !discover {
		return "", ""
	}
	certFile, keyFile, found := findSSLCertificates(os.Getenv("BASE_DOMAIN"))
	if !found {
		logger.Warn("TLS certificates not found, serving plain HTTP",
			zap.String("expected", "cert.pem and key.pem in working directory, or Let's Encrypt certificates"))
		return "", ""
	}
	return certFile, keyFile
}

// findSSLCertificates looks for SSL certificates in common locations
func findSSLCertificates(domain string) (certPath, keyPath string, found bool) {
	// First, check working directory
	if fileExists("cert.pem") && fileExists("key.pem") {
		return "cert.pem", "key.pem", true
	}

	if domain != "" {
		letsEncryptPaths := []string{
			filepath.Join("/etc/letsencrypt/live", domain),
			filepath.Join("/etc/letsencrypt/live", "chat."+domain),
		}
		for _, basePath := range letsEncryptPaths {
			certFile := filepath.Join(basePath, "fullchain.pem")
			keyFile := filepath.Join(basePath, "privkey.pem")
			if fileExists(certFile) && fileExists(keyFile) {
				logger.Info("found Let's Encrypt certificates", zap.String("path", basePath))
				return certFile, keyFile, true
			}
		}
	}

	alternativePaths := []struct {
		cert string
		key  string
	}{
		{"/etc/ssl/certs/cert.pem", "/etc/ssl/private/key.pem"},
		{"/etc/ssl/cert.pem", "/etc/ssl/key.pem"},
	}
	for _, paths := range alternativePaths {
		if fileExists(paths.cert) && fileExists(paths.key) {
			logger.Info("found certificates", zap.String("path", filepath.Dir(paths.cert)))
			return paths.cert, paths.key, true
		}
	}

	return "", "", false
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
