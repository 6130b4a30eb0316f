package sshutil

import (
	"encoding/pem"
	"io/ioutil"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultSSHPrivateKeyFilePath is the default SSH private key file path
// used to connect to the cluster login node
const DefaultSSHPrivateKeyFilePath = "~/.ssh/id_rsa"

// ReadPrivateKey returns an authentication method relying on private/public key pairs
//
// The argument is :
// - either a path to the private key file,
// - or the content of this private key file
func ReadPrivateKey(pk string) (ssh.AuthMethod, error) {
	p, err := ToPrivateKeyContent(pk)
	if err != nil {
		return nil, err
	}

	// We parse the private key on our own first so that we can
	// show a nicer error if the private key has a password.
	block, _ := pem.Decode(p)
	if block == nil {
		return nil, errors.Errorf("Failed to read key %q: no key found", pk)
	}
	if block.Headers["Proc-Type"] == "4,ENCRYPTED" {
		return nil, errors.Errorf(
			"Failed to read key %q: password protected keys are\n"+
				"not supported. Please decrypt the key prior to use.", pk)
	}

	signer, err := ssh.ParsePrivateKey(p)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse key file %q", pk)
	}

	return ssh.PublicKeys(signer), nil
}

// ToPrivateKeyContent allows to convert private key content or file to byte array
func ToPrivateKeyContent(pk string) ([]byte, error) {
	var p []byte
	// check if pk is a path
	keyPath, err := homedir.Expand(pk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to expand key path")
	}
	if _, err := os.Stat(keyPath); err == nil {
		p, err = ioutil.ReadFile(keyPath)
		if err != nil {
			p = []byte(pk)
		}
	} else {
		p = []byte(pk)
	}
	return p, nil
}
