package gerrit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joescharf/relstatus/internal/models"
)

// SSHQuerier runs `gerrit query` over the ssh command line client, relying on
// the user's ssh configuration for authentication.
type SSHQuerier struct {
	Host string
	Port int

	run func(ctx context.Context, args ...string) ([]byte, error)
}

// NewSSHQuerier returns a querier for the Gerrit ssh daemon at host:port.
func NewSSHQuerier(host string, port int) *SSHQuerier {
	return &SSHQuerier{Host: host, Port: port, run: sshCmd}
}

func sshCmd(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "ssh", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ssh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ssh %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Args returns the ssh arguments for req.
func (s *SSHQuerier) Args(req Request) []string {
	args := []string{"-p", strconv.Itoa(s.Port), s.Host, "gerrit", "query", "--format=JSON"}
	args = append(args, req.Query...)
	if req.Resume != "" {
		args = append(args, "resume_sortkey:"+req.Resume)
	}
	return args
}

func (s *SSHQuerier) Query(ctx context.Context, req Request) ([]Row, error) {
	out, err := s.run(ctx, s.Args(req)...)
	if err != nil {
		return nil, err
	}
	return ParseRows(bytes.NewReader(out))
}

// flexInt accepts a JSON number or a string holding one.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("change number %s: %w", data, err)
	}
	*n = flexInt(v)
	return nil
}

type wireRow struct {
	Type     string  `json:"type"`
	Message  string  `json:"message"`
	RowCount *int    `json:"rowCount"`
	Number   flexInt `json:"number"`
	URL      string  `json:"url"`
	Subject  string  `json:"subject"`
	Project  string  `json:"project"`
	Topic    string  `json:"topic"`
	Status   string  `json:"status"`
	SortKey  string  `json:"sortKey"`
}

// ParseRows decodes line-delimited query output.
func ParseRows(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var w wireRow
		if err := json.Unmarshal(text, &w); err != nil {
			return nil, fmt.Errorf("parse query output line %d: %w", line, err)
		}

		switch {
		case w.Type == "error":
			return nil, fmt.Errorf("gerrit query error: %s", w.Message)
		case w.Type == "stats" || w.RowCount != nil:
			count := 0
			if w.RowCount != nil {
				count = *w.RowCount
			}
			rows = append(rows, Row{RowCount: count})
		case w.Number == 0:
			return nil, fmt.Errorf("parse query output line %d: change without number", line)
		default:
			rows = append(rows, Row{Change: &models.RawChange{
				Number:  int(w.Number),
				URL:     w.URL,
				Subject: w.Subject,
				Project: w.Project,
				Topic:   w.Topic,
				Status:  models.ChangeStatus(w.Status),
				SortKey: w.SortKey,
			}})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read query output: %w", err)
	}
	return rows, nil
}
