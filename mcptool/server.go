package mcptool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/jongio/azd-odata/security"
	"github.com/jongio/azd-odata/urlutil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"
)

// ToolName is the name the fetch tool is registered under.
const ToolName = "fetch_odata_metadata"

// MaxInlineBytes caps the document content returned inline.
const MaxInlineBytes = 1 << 20

// Retriever fetches a metadata document.
type Retriever interface {
	Retrieve(ctx context.Context, raw string, acquirer *credential.Acquirer, opts credential.AcquireOptions) (*metadata.Document, error)
}

// Result is the JSON body of a successful tool call.
type Result struct {
	Endpoint    string `json:"endpoint"`
	Version     string `json:"version"`
	Namespace   string `json:"namespace"`
	RootElement string `json:"rootElement"`
	Size        int64  `json:"size"`
	Path        string `json:"path,omitempty"`
	Content     string `json:"content,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// ErrLocalEndpoint is returned for a local path or file:// endpoint outside
// the allowed directories.
var ErrLocalEndpoint = errors.New("local metadata files are not allowed")

// Server handles fetch_odata_metadata calls.
type Server struct {
	retriever   Retriever
	acquirer    *credential.Acquirer
	limiter     *rate.Limiter
	allowedDirs []string
	log         *logutil.ComponentLogger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit allows burst calls and then perSecond calls per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithAllowedDirs lets the tool read local metadata files, given as paths or
// file:// URIs, that resolve inside one of dirs. Without it only http and
// https endpoints are served.
func WithAllowedDirs(dirs ...string) Option {
	return func(s *Server) { s.allowedDirs = append(s.allowedDirs, dirs...) }
}

// WithLogger sets the logger.
func WithLogger(log *logutil.ComponentLogger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a tool server. acquirer should be built without an
// interactive prompter; nil means anonymous access only.
func New(retriever Retriever, acquirer *credential.Acquirer, opts ...Option) *Server {
	s := &Server{
		retriever: retriever,
		acquirer:  acquirer,
		limiter:   rate.NewLimiter(rate.Limit(1), 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logutil.NewLogger("mcp")
	}
	return s
}

// Tool describes the fetch tool.
func (s *Server) Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Download an OData service's $metadata document, validate it and report its EDMX version."),
		mcp.WithString("endpoint",
			mcp.Required(),
			mcp.Description("Service root or $metadata URL (http or https)"),
		),
		mcp.WithBoolean("use_credentials",
			mcp.Description("Use credentials already saved for the host"),
		),
		mcp.WithBoolean("keep",
			mcp.Description("Keep the staged file and return its path instead of its content"),
		),
	)
}

// Handle serves one tool call. Retrieval failures are returned as tool
// errors, not protocol errors.
func (s *Server) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.limiter.Allow() {
		return mcp.NewToolResultError(fmt.Sprintf("rate limit exceeded for tool %q, please wait before retrying", ToolName)), nil
	}

	args := argsMap(request)
	endpoint, ok := stringParam(args, "endpoint")
	if !ok || endpoint == "" {
		return mcp.NewToolResultError("endpoint is required"), nil
	}
	if err := s.checkEndpoint(endpoint); err != nil {
		s.log.Warn("tool call refused", "tool", ToolName, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	keep := boolParam(args, "keep", false)

	acquirer := s.acquirer
	if !boolParam(args, "use_credentials", false) {
		acquirer = nil
	}

	doc, err := s.retriever.Retrieve(ctx, endpoint, acquirer, credential.AcquireOptions{Needed: acquirer != nil})
	if err != nil {
		s.log.Warn("tool call failed", "tool", ToolName, "kind", metadata.KindOf(err).String())
		return mcp.NewToolResultError(metadata.UserMessage(err)), nil
	}

	res := Result{
		Endpoint:    doc.Endpoint,
		Version:     doc.Version.String(),
		Namespace:   doc.Namespace,
		RootElement: doc.RootElement,
		Size:        doc.Size,
	}
	if keep {
		res.Path = doc.Path
		return marshalToolResult(res), nil
	}

	defer func() {
		if err := doc.Remove(); err != nil {
			s.log.Warn("failed to remove staged document", "error", err)
		}
	}()
	content, truncated, err := readCapped(doc.Path, MaxInlineBytes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read staged document: %v", err)), nil
	}
	res.Content = content
	res.Truncated = truncated
	return marshalToolResult(res), nil
}

func (s *Server) checkEndpoint(endpoint string) error {
	if urlutil.IsHTTPEndpoint(endpoint) {
		return nil
	}
	if len(s.allowedDirs) == 0 {
		return fmt.Errorf("%w: only http and https endpoints are served", ErrLocalEndpoint)
	}
	path, err := localPath(endpoint)
	if err != nil {
		return err
	}
	if _, err := security.ValidatePathWithinBases(path, s.allowedDirs...); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalEndpoint, err)
	}
	return nil
}

// localPath returns the filesystem path of a plain path or file:// URI.
// Other schemes are refused; single-letter schemes are Windows drive letters.
func localPath(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || len(u.Scheme) <= 1 {
		return endpoint, nil
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrLocalEndpoint, u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote file host %q", ErrLocalEndpoint, u.Host)
	}
	return u.Path, nil
}

// MCPServer builds an MCP server with the fetch tool registered.
func (s *Server) MCPServer(name, version string) *server.MCPServer {
	srv := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	srv.AddTool(s.Tool(), s.Handle)
	return srv
}

// ServeStdio serves the tool over stdin/stdout until the input closes.
func (s *Server) ServeStdio(name, version string) error {
	return server.ServeStdio(s.MCPServer(name, version))
}

func readCapped(path string, limit int64) (string, bool, error) {
	// #nosec G304 -- path is a staging file created by the fetcher
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(data)) > limit {
		return string(data[:limit]), true, nil
	}
	return string(data), false, nil
}
