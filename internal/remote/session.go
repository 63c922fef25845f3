package remote

import (
	"accesslog-etl/internal/types"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrConnect marks connection and authentication failures
var ErrConnect = errors.New("remote connect failed")

// connectTimeout bounds the TCP dial and the SSH handshake
var connectTimeout = 30 * time.Second

// Session is an open file-transfer session on the remote host
type Session interface {
	List(ctx context.Context) ([]types.RemoteFile, error)
	Download(ctx context.Context, name string, dst io.Writer) (int64, error)
	Close() error
}

// Dialer opens a Session
type Dialer func(ctx context.Context, cfg types.SFTPConfig) (Session, error)

// SFTPSession implements Session over SSH
type SFTPSession struct {
	conn   *ssh.Client
	client *sftp.Client
	dir    string
}

// DialSFTP connects with password authentication. Without a known_hosts file
// the host key is not verified.
func DialSFTP(ctx context.Context, cfg types.SFTPConfig) (Session, error) {
	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: known_hosts: %v", ErrConnect, err)
		}
		hostKey = cb
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d := net.Dialer{Timeout: connectTimeout}
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	// ssh.ClientConfig.Timeout only applies to ssh.Dial
	deadline := time.Now().Add(connectTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	rawConn.SetDeadline(deadline)
	c, chans, reqs, err := ssh.NewClientConn(rawConn, addr, sshCfg)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	rawConn.SetDeadline(time.Time{})
	conn := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: sftp subsystem: %v", ErrConnect, err)
	}

	dir := cfg.RemoteDir
	if dir == "" {
		dir = "."
	}
	return &SFTPSession{conn: conn, client: client, dir: dir}, nil
}

func (s *SFTPSession) List(ctx context.Context) ([]types.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.client.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	files := make([]types.RemoteFile, 0, len(entries))
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, types.RemoteFile{
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return files, nil
}

func (s *SFTPSession) Download(ctx context.Context, name string, dst io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := s.client.Open(path.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("failed to open remote %s: %w", name, err)
	}
	defer f.Close()

	n, err := f.WriteTo(dst)
	if err != nil {
		return n, fmt.Errorf("failed to download %s: %w", name, err)
	}
	return n, nil
}

func (s *SFTPSession) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
