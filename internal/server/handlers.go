package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type aspectRatioRequest struct {
	AspectRatio string `json:"aspectRatio"`
}

// generateRequest の各フィールドは省略時に現在のフォームの値を使います。
type generateRequest struct {
	Prompt      *string `json:"prompt"`
	AspectRatio *string `json:"aspectRatio"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, newStateView(s.orch.State()))
}

func (s *Server) streamEvents(c *gin.Context) {
	initial, err := json.Marshal(newStateView(s.orch.State()))
	if err != nil {
		handleError(c, err)
		return
	}
	s.hub.Serve(c, "state", initial, keepAliveInterval)
}

func (s *Server) listAspectRatios(c *gin.Context) {
	ratios := domain.AspectRatios()
	out := make([]aspectRatioView, 0, len(ratios))
	for _, ar := range ratios {
		out = append(out, aspectRatioView{Value: ar.String(), Label: ar.Label()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getHelp(c *gin.Context) {
	c.JSON(http.StatusOK, helpView{
		Title:      domain.HelpTitle,
		Steps:      domain.HelpSteps(),
		QuotaLinks: domain.QuotaHelpLinks(),
	})
}

func (s *Server) putPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := s.orch.SetPrompt(req.Prompt); err != nil {
		handleError(c, err)
		return
	}
	s.getState(c)
}

func (s *Server) putAspectRatio(c *gin.Context) {
	var req aspectRatioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	ar, err := domain.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := s.orch.SetAspectRatio(ar); err != nil {
		handleError(c, err)
		return
	}
	s.getState(c)
}

// generate は生成を受け付けて 202 を返します。?wait=true の場合は完了まで待ち、結果に応じたステータスを返します。
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	current := s.orch.State()
	if current.IsGenerating {
		handleError(c, session.ErrBusy)
		return
	}
	prompt := current.Prompt
	if req.Prompt != nil {
		prompt = *req.Prompt
	}
	if strings.TrimSpace(prompt) == "" {
		handleError(c, domain.ErrEmptyPrompt)
		return
	}
	ar := current.AspectRatio
	if req.AspectRatio != nil {
		parsed, err := domain.ParseAspectRatio(*req.AspectRatio)
		if err != nil {
			handleError(c, err)
			return
		}
		ar = parsed
	}

	task := s.orch.Submit(c.Request.Context(), prompt, ar)
	if task == nil {
		handleError(c, session.ErrBusy)
		return
	}
	s.respondTask(c, task)
}

func (s *Server) selectImage(c *gin.Context) {
	if err := s.orch.SelectImage(c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	s.getState(c)
}

func (s *Server) closePreview(c *gin.Context) {
	s.orch.ClosePreview()
	s.getState(c)
}

func (s *Server) remix(c *gin.Context) {
	current := s.orch.State()
	if current.IsGenerating {
		handleError(c, session.ErrBusy)
		return
	}
	if current.Selected == nil {
		handleError(c, session.ErrNoSelection)
		return
	}
	task := s.orch.Remix(c.Request.Context())
	if task == nil {
		handleError(c, session.ErrBusy)
		return
	}
	s.respondTask(c, task)
}

func (s *Server) download(c *gin.Context) {
	export, err := s.orch.Download()
	if err != nil {
		handleError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ImageDownloadsTotal.Inc()
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	c.Data(http.StatusOK, export.MimeType, export.Data)
}

func (s *Server) respondTask(c *gin.Context, task *session.Task) {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		c.JSON(http.StatusAccepted, newStateView(s.orch.State()))
		return
	}
	select {
	case <-task.Done():
	case <-c.Request.Context().Done():
		return
	}
	st := s.orch.State()
	if st.Error != nil {
		respondFailure(c, st.Error)
		return
	}
	c.JSON(http.StatusOK, newStateView(st))
}
