package server

import (
	"errors"
	"io"
	"io/fs"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/protocol"
)

// Result describes how one request was answered
type Result struct {
	// Status is the status sent, or the status that would have been sent
	// when the response was abandoned
	Status protocol.Status
	// Path is the document-root relative file that was looked up
	Path string
	// BodyBytes counts body bytes actually transmitted
	BodyBytes int64
	// Cause is the classified error behind an error page
	Cause error
}

// Handler answers a single request line from a filesystem
type Handler struct {
	fsys fs.FS
}

// NewHandler serves files from fsys
func NewHandler(fsys fs.FS) *Handler {
	return &Handler{fsys: fsys}
}

// ServeRequest parses req, looks the file up and writes exactly one response
// to w. A non-nil error means the connection must be dropped: either nothing
// valid could be sent or the body was cut short after the header went out
func (h *Handler) ServeRequest(w io.Writer, req []byte) (Result, error) {
	target, err := protocol.RequestTarget(req)
	if err != nil {
		return h.sendError(w, Result{Status: protocol.StatusBadRequest, Cause: err})
	}

	path := protocol.DocumentPath(target)
	file, info, name, err := h.open(string(target), path)
	if err != nil {
		res := Result{Status: protocol.StatusInternalServerError, Path: path, Cause: err}
		if httperrors.IsFile(err, httperrors.FileErrorNotFound) {
			res.Status = protocol.StatusNotFound
		}
		return h.sendError(w, res)
	}
	defer file.Close()

	res := Result{Status: protocol.StatusOK, Path: name}
	resp := &protocol.Response{
		Status:        protocol.StatusOK,
		ContentType:   protocol.ContentType(name),
		BodyReader:    file,
		ContentLength: info.Size(),
	}

	res.BodyBytes, err = resp.Send(w)
	if httperrors.IsProtocol(err, httperrors.ProtocolErrorHeaderOverflow) {
		// Nothing has been written yet
		res.Status = protocol.StatusInternalServerError
		res.Cause = err
		return h.sendError(w, res)
	}
	return res, err
}

// open resolves the file to serve. A target naming a regular file is served
// as is; anything else goes through the normalized path
func (h *Handler) open(target, path string) (fs.File, fs.FileInfo, string, error) {
	if target != "" && target[len(target)-1] != '/' {
		if f, err := h.fsys.Open(target); err == nil {
			if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
				return f, info, target, nil
			}
			f.Close()
		}
	}

	f, err := h.fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, nil, path, httperrors.NewFileError(httperrors.FileErrorNotFound, path, err)
		}
		return nil, nil, path, httperrors.NewFileError(httperrors.FileErrorAccess, "open "+path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, path, httperrors.NewFileError(httperrors.FileErrorAccess, "stat "+path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, path, httperrors.NewFileError(httperrors.FileErrorAccess, path+" is not a regular file", nil)
	}

	return f, info, path, nil
}

func (h *Handler) sendError(w io.Writer, res Result) (Result, error) {
	n, err := protocol.ErrorPage(res.Status).Send(w)
	res.BodyBytes = n
	return res, err
}
