package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestFileManager_GetOrCreateCertificate(t *testing.T) {
	tests := []struct {
		setup    func(t *testing.T, m *FileManager)
		validate func(t *testing.T, m *FileManager, cert tls.Certificate)
		name     string
	}{
		{
			name:  "creates a certificate when none exists",
			setup: func(_ *testing.T, _ *FileManager) {},
			validate: func(t *testing.T, m *FileManager, cert tls.Certificate) {
				t.Helper()
				parsed := parse(t, cert)
				assert.Equal(t, Organization, parsed.Subject.Organization[0])
				assert.Contains(t, parsed.DNSNames, "localhost")
				require.NoError(t, parsed.VerifyHostname("127.0.0.1"))

				info, err := os.Stat(m.keyFile)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
			},
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				_, err := m.GetOrCreateCertificate()
				require.NoError(t, err)
			},
			validate: func(t *testing.T, m *FileManager, cert tls.Certificate) {
				t.Helper()
				stored, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
				require.NoError(t, err)
				assert.Equal(t, parse(t, stored).SerialNumber, parse(t, cert).SerialNumber)
			},
		},
		{
			name: "regenerates garbage files",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				require.NoError(t, os.MkdirAll(m.certDir, 0o700))
				require.NoError(t, os.WriteFile(m.certFile, []byte("not a cert"), 0o600))
				require.NoError(t, os.WriteFile(m.keyFile, []byte("not a key"), 0o600))
			},
			validate: func(t *testing.T, _ *FileManager, cert tls.Certificate) {
				t.Helper()
				assert.Equal(t, Organization, parse(t, cert).Subject.Organization[0])
			},
		},
		{
			name: "regenerates an expired certificate",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				m.now = func() time.Time { return time.Now().Add(-2 * validFor) }
				_, err := m.GetOrCreateCertificate()
				require.NoError(t, err)
				m.now = time.Now
			},
			validate: func(t *testing.T, _ *FileManager, cert tls.Certificate) {
				t.Helper()
				assert.True(t, parse(t, cert).NotAfter.After(time.Now()))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
			tt.setup(t, m)

			cert, err := m.GetOrCreateCertificate()
			require.NoError(t, err)
			tt.validate(t, m, cert)
		})
	}
}

func TestFileManager_CertificateExists(t *testing.T) {
	m := NewFileManager(t.TempDir())

	exists, err := m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(m.certFile, []byte("x"), 0o600))
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists, "key file is still missing")

	require.NoError(t, os.WriteFile(m.keyFile, []byte("x"), 0o600))
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileManager_VerifyCertificate(t *testing.T) {
	m := NewFileManager(t.TempDir())
	require.ErrorIs(t, m.verifyCertificate(tls.Certificate{}), ErrInvalidCertificate)

	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	require.NoError(t, m.verifyCertificate(cert))

	m.now = func() time.Time { return time.Now().Add(2 * validFor) }
	require.ErrorIs(t, m.verifyCertificate(cert), ErrInvalidCertificate)
}

func TestFileManager_TLSConfig(t *testing.T) {
	cfg, err := NewFileManager(t.TempDir()).TLSConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}
