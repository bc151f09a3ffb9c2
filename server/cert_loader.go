package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// certCheckInterval bounds how often the certificate files are stat'ed.
const certCheckInterval = time.Minute

// CertLoader serves a TLS key pair from disk and picks up replaced files
// without a restart.
type CertLoader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	cert      *tls.Certificate
	certMod   time.Time
	keyMod    time.Time
	lastCheck time.Time
}

// NewCertLoader loads the key pair once and fails if it cannot.
func NewCertLoader(certFile, keyFile string, logger *slog.Logger) (*CertLoader, error) {
	l := &CertLoader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: certCheckInterval,
		logger:   logger,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// GetCertificate is a callback for tls.Config.GetCertificate. If reloading
// fails the previous certificate keeps being served.
func (l *CertLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCheck) < l.interval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	certMod, keyMod, err := l.modTimes()
	if err != nil {
		l.logger.Error("failed to stat tls files", "error", err)
		return l.cert, nil
	}
	if certMod.Equal(l.certMod) && keyMod.Equal(l.keyMod) {
		return l.cert, nil
	}

	if err := l.load(); err != nil {
		l.logger.Error("failed to reload tls certificate", "error", err)
	}
	return l.cert, nil
}

// TLSConfig returns a server TLS config backed by l.
func (l *CertLoader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: l.GetCertificate,
	}
}

func (l *CertLoader) modTimes() (time.Time, time.Time, error) {
	certStat, err := os.Stat(l.certFile)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	keyStat, err := os.Stat(l.keyFile)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return certStat.ModTime(), keyStat.ModTime(), nil
}

// load must be called with mu held or before l is shared.
func (l *CertLoader) load() error {
	certMod, keyMod, err := l.modTimes()
	if err != nil {
		return fmt.Errorf("failed to stat key pair: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}

	l.cert = &cert
	l.certMod = certMod
	l.keyMod = keyMod
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}
