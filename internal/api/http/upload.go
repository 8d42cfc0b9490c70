package apihttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"campus-energy/internal/auth"
	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/observability/metrics"
	"campus-energy/internal/reports"
)

const (
	defaultMaxUploadBytes = 32 << 20
	uploadField           = "file"
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errNoFile = errors.New("no file uploaded")

func (s *server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()
	buf, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return buf, header.Filename, nil
}

func (s *server) upload(kind energy.SourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf, name, err := s.readUpload(w, r)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "No file uploaded.")
			return
		}
		result, err := s.deps.Importer.Import(r.Context(), buf, kind)
		if err != nil {
			s.writeError(w, r, "Failed to import file.", err)
			return
		}
		s.logger.Info("file imported",
			zap.String("file", name),
			zap.String("uploaded_by", auth.SubjectFromContext(r.Context())),
			zap.String("batch_id", result.BatchID),
			zap.Int("written", result.Written),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *server) uploadPieChart(w http.ResponseWriter, r *http.Request) {
	buf, _, err := s.readUpload(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	if err := s.deps.Sources.Save(buf); err != nil {
		s.writeError(w, r, "Failed to store sources file.", err)
		return
	}
	writeMessage(w, http.StatusOK, "File uploaded successfully.")
}

func (s *server) getPieChartData(w http.ResponseWriter, r *http.Request) {
	buf, err := s.deps.Sources.Load()
	if err != nil {
		if errors.Is(err, energy.ErrNoData) {
			writeMessage(w, http.StatusNotFound, "No XLSX file found")
			return
		}
		s.writeError(w, r, "Failed to retrieve XLSX file.", err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+reports.SourcesFileName)
	w.Header().Set("Content-Type", xlsxContentType)
	_, _ = w.Write(buf)
}

func (s *server) getSummaryReport(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	summary, err := reports.CollectSummary(r.Context(), s.deps.Analytics, r.URL.Query().Get("period"), s.deps.Clock.Now())
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		s.writeError(w, r, "Failed to build summary.", err)
		return
	}

	var (
		buf         []byte
		contentType string
	)
	switch format {
	case "pdf":
		buf, err = reports.BuildSummaryPDF(summary)
		contentType = "application/pdf"
	default:
		format = "xlsx"
		buf, err = reports.BuildSummaryXLSX(summary)
		contentType = xlsxContentType
	}
	metrics.IncReportExport(format, metrics.Result(err))
	if err != nil {
		s.writeError(w, r, "Failed to render summary.", err)
		return
	}

	filename := fmt.Sprintf("energy-summary-%s.%s", summary.GeneratedAt.Format("20060102"), format)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf)
}
