package sshutil

import (
	"context"
	"io"
)

// MockSSHClient allows to mock an SSH Client
type MockSSHClient struct {
	MockRunCommand func(string) (string, error)
	MockCopyFile   func(ctx context.Context, source io.Reader, remotePath string, permissions string) error
}

// RunCommand to mock a command ran via SSH
func (s *MockSSHClient) RunCommand(cmd string) (string, error) {
	if s.MockRunCommand != nil {
		return s.MockRunCommand(cmd)
	}
	return "", nil
}

// CopyFile to mock a file copy via SSH
func (s *MockSSHClient) CopyFile(ctx context.Context, source io.Reader, remotePath string, permissions string) error {
	if s.MockCopyFile != nil {
		return s.MockCopyFile(ctx, source, remotePath, permissions)
	}
	return nil
}
