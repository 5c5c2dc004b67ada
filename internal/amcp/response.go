package amcp

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Response is one reply from the server.
type Response struct {
	Code    int
	Message string
	// Data holds the lines following the status line for 200 and 201 replies.
	Data []string
}

func (r Response) OK() bool { return r.Code >= 200 && r.Code < 300 }

// ResponseError is returned for replies outside the 2xx range.
type ResponseError struct {
	Command string
	Code    int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Command, e.Code, e.Message)
}

var errEmptyReply = errors.New("empty reply")

func parseStatusLine(line string) (int, string, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return 0, "", errEmptyReply
	}
	codeText, msg, _ := strings.Cut(line, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || code < 100 || code > 999 {
		return 0, "", fmt.Errorf("invalid status line %q", line)
	}
	return code, strings.TrimSpace(msg), nil
}

// readResponse reads a status line and any data section: 200 carries lines up
// to an empty line, 201 carries exactly one line.
func readResponse(r *bufio.Reader) (Response, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return Response{}, err
	}
	code, msg, err := parseStatusLine(line)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Code: code, Message: msg}
	switch code {
	case 200:
		for {
			l, err := r.ReadString('\n')
			if err != nil {
				return Response{}, err
			}
			l = strings.TrimRight(l, "\r\n")
			if l == "" {
				break
			}
			resp.Data = append(resp.Data, l)
		}
	case 201:
		l, err := r.ReadString('\n')
		if err != nil {
			return Response{}, err
		}
		resp.Data = []string{strings.TrimRight(l, "\r\n")}
	}
	return resp, nil
}
