package slurm

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpcforge/hpcforge/config"
)

// Tests the definition of a private key in configuration
func TestPrivateKey(t *testing.T) {
	t.Parallel()
	// First generate a valid private key content
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(t, err)
	bArray := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY",
		Headers: nil,
		Bytes:   x509.MarshalPKCS1PrivateKey(priv)})
	privateKeyContent := string(bArray)

	// Config to test
	cfg := config.Configuration{
		Cluster: config.DynamicMap{
			"user_name":   "jdoe",
			"url":         "127.0.0.1",
			"port":        22,
			"private_key": privateKeyContent},
	}

	err = CheckClusterConfig(cfg)
	assert.NoError(t, err, "Unexpected error parsing a configuration with private key")
	_, err = getSSHClient("", "", "", cfg)
	assert.NoError(t, err, "Unexpected error getting a ssh client using a configuration with private key")
	_, err = getSSHClient("jdoe", privateKeyContent, "", cfg)
	assert.NoError(t, err, "Unexpected error getting a ssh client using provided properties with private key")

	// Remove the private key.
	// As there is no password defined either, check an error is returned
	cfg.Cluster.Set("private_key", "")
	err = CheckClusterConfig(cfg)
	assert.Error(t, err, "Expected an error parsing a wrong configuration with no private key and no password defined")

	// Setting a wrong private key path
	// Check the attempt to use this key for the authentication method is failing
	cfg.Cluster.Set("private_key", "invalid_path_to_key.pem")
	err = CheckClusterConfig(cfg)
	assert.NoError(t, err, "Unexpected error parsing a configuration with private key")
	_, err = getSSHClient("", "", "", cfg)
	assert.Error(t, err, "Expected an error getting a ssh client using a configuration with bad private key and no password defined")
	_, err = getSSHClient("jdoe", "invalid_path_to_key.pem", "", cfg)
	assert.Error(t, err, "Expected an error getting a ssh client using provided credentials with bad private key and no password defined")

	// Configuration with no private key but a password, the config should be valid
	cfg.Cluster = config.DynamicMap{
		"user_name": "jdoe",
		"url":       "127.0.0.1",
		"port":      22,
		"password":  "test",
	}

	err = CheckClusterConfig(cfg)
	assert.NoError(t, err, "Unexpected error parsing a configuration with password")
	_, err = getSSHClient("", "", "", cfg)
	assert.NoError(t, err, "Unexpected error getting a ssh client using a configuration with password")
	_, err = getSSHClient("jdoe", "", "test", cfg)
	assert.NoError(t, err, "Unexpected error getting a ssh client using provided credentials with password")

	// No user name at all
	_, err = getSSHClient("", "", "", config.Configuration{Cluster: config.DynamicMap{}})
	assert.Error(t, err, "Expected an error getting a ssh client without any user name")
}
