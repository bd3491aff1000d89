// Command web exposes the same compress/decompress/dump operations over
// HTTP file upload, grounded on the teacher's cmd/web/main.go
// (gin.Default(), gin-contrib/cors, JSON error envelope).
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"btcompress/pkg/compressor"
	"btcompress/pkg/config"
	"btcompress/pkg/decompressor"
	"btcompress/pkg/dump"
	"btcompress/pkg/logging"
	"btcompress/pkg/parser"
)

// errorInfo mirrors the teacher's types.ErrorInfo JSON envelope shape.
type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	log := logging.L()

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.POST("/api/compress", handleCompress)
	r.POST("/api/decompress", handleDecompress)
	r.POST("/api/dump", handleDump)

	addr := config.ListenAddr()
	log.WithField("addr", addr).Info("btcompress web service listening")
	fmt.Printf("http://%s\n", addr)
	if err := r.Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func handleCompress(c *gin.Context) {
	spooled, cleanup, err := spoolUpload(c, "upload")
	if err != nil {
		jsonError(c, http.StatusBadRequest, "INVALID_UPLOAD", err)
		return
	}
	defer cleanup()

	out, err := os.CreateTemp("", "btcompress-out-*")
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "IO_ERROR", err)
		return
	}
	defer os.Remove(out.Name())
	defer out.Close()

	opts := compressor.CompressOptions{Lossy: !config.Strict()}
	if err := compressor.Compress(context.Background(), spooled, out, opts); err != nil {
		jsonError(c, http.StatusBadRequest, "COMPRESS_FAILED", err)
		return
	}

	serveFile(c, out, "compressed.btc")
}

func handleDecompress(c *gin.Context) {
	spooled, cleanup, err := spoolUpload(c, "upload")
	if err != nil {
		jsonError(c, http.StatusBadRequest, "INVALID_UPLOAD", err)
		return
	}
	defer cleanup()

	out, err := os.CreateTemp("", "btcompress-out-*")
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "IO_ERROR", err)
		return
	}
	defer os.Remove(out.Name())
	defer out.Close()

	if err := decompressor.Decompress(context.Background(), spooled, out); err != nil {
		jsonError(c, http.StatusBadRequest, "DECOMPRESS_FAILED", err)
		return
	}

	serveFile(c, out, "decompressed.dat")
}

func handleDump(c *gin.Context) {
	spooled, cleanup, err := spoolUpload(c, "upload")
	if err != nil {
		jsonError(c, http.StatusBadRequest, "INVALID_UPLOAD", err)
		return
	}
	defer cleanup()

	network := dump.Mainnet
	if c.Query("network") == "testnet" {
		network = dump.Testnet
	}

	// One bufio.Reader shared across every block, for the same reason as
	// the CLI's dump loop: ParseBlock's SegWit-marker peek buffers ahead,
	// and a fresh reader per call would throw that lookahead away.
	reader := bufio.NewReader(spooled)
	var blocks []*dump.Block
	for {
		block, err := parser.ParseBlock(reader)
		if err != nil {
			if errors.Cause(err) == io.EOF {
				break
			}
			jsonError(c, http.StatusBadRequest, "DUMP_FAILED", err)
			return
		}
		blocks = append(blocks, dump.Build(block, network))
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "blocks": blocks})
}

// spoolUpload copies the multipart field fieldName to a temp file and
// returns it seeked to the start, since both codec directions require a
// seekable stream (spec section 5).
func spoolUpload(c *gin.Context, fieldName string) (*os.File, func(), error) {
	fileHeader, err := c.FormFile(fieldName)
	if err != nil {
		return nil, nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "btcompress-in-*")
	if err != nil {
		return nil, nil, err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, err
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	return tmp, cleanup, nil
}

func serveFile(c *gin.Context, f *os.File, downloadName string) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		jsonError(c, http.StatusInternalServerError, "IO_ERROR", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName))
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", f, nil)
}

func jsonError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{"ok": false, "error": errorInfo{Code: code, Message: err.Error()}})
}
