package server

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jalsampada/go-frappeforms/pkg/failure"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
	"github.com/jalsampada/go-frappeforms/pkg/render"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// newRecord is the path segment that opens an unsaved record.
const newRecord = "new"

func recordName(c *gin.Context) string {
	name := c.Param("name")
	if name == newRecord {
		return ""
	}
	return name
}

func (s *Server) showForm(c *gin.Context) {
	ctx := c.Request.Context()
	doctype := c.Param("doctype")
	name := recordName(c)

	req := orchestrator.Request{Doctype: doctype, Name: name}
	if name == "" {
		formModel, err := s.orch.Form(ctx, doctype)
		if err != nil {
			s.failPage(c, err)
			return
		}
		req.Values = queryValues(formModel, c.Request.URL.Query())
	}
	req.View = viewFromQuery(c)

	out, err := s.orch.Generate(ctx, req)
	if err != nil {
		s.failPage(c, err)
		return
	}
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

func (s *Server) submitForm(c *gin.Context) {
	ctx := c.Request.Context()
	doctype := c.Param("doctype")
	name := recordName(c)

	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form body")
		return
	}
	posted := c.Request.PostForm
	if name != "" && posted.Get(render.HiddenMethod) == http.MethodDelete {
		s.deleteForm(c)
		return
	}

	formModel, err := s.orch.Form(ctx, doctype)
	if err != nil {
		s.failPage(c, err)
		return
	}

	out, err := s.orch.Submit(ctx, orchestrator.SubmitRequest{
		Doctype:  doctype,
		Name:     name,
		Values:   decodeForm(formModel, posted),
		Revision: render.RevisionFromForm(posted.Get),
	})
	if err == nil {
		c.Redirect(http.StatusSeeOther, out.Redirect)
		return
	}

	var f *failure.Failure
	if !errors.As(err, &f) || out.Session == nil || out.Session.State == nil {
		s.failPage(c, err)
		return
	}
	page, renderErr := s.orch.Render(ctx, out.Session, viewFromQuery(c))
	if renderErr != nil {
		s.failPage(c, renderErr)
		return
	}
	c.Data(f.HTTPStatus(), page.ContentType, page.Body)
}

func (s *Server) deleteForm(c *gin.Context) {
	redirect, err := s.orch.Delete(c.Request.Context(), orchestrator.DeleteRequest{
		Doctype: c.Param("doctype"),
		Name:    recordName(c),
	})
	if err != nil {
		s.failPage(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

// failPage answers an HTML request that could not produce a form.
func (s *Server) failPage(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	detail := failure.MessageUnknown
	if errors.Is(err, orchestrator.ErrUnknownDoctype) {
		status = http.StatusNotFound
		detail = "No form is configured for this doctype."
	} else {
		f := failure.Classify(err)
		status, detail = f.HTTPStatus(), f.Detail
	}
	c.Data(status, "text/html; charset=utf-8", []byte(`<p role="alert">`+html.EscapeString(detail)+"</p>\n"))
}

func viewFromQuery(c *gin.Context) orchestrator.View {
	return orchestrator.View{
		Renderer:     c.Query("renderer"),
		ThemeName:    c.Query("theme"),
		ThemeVariant: c.Query("variant"),
		Locale:       c.Query("locale"),
		Subset: render.FieldSubset{
			Tabs:   c.QueryArray("tab"),
			Groups: c.QueryArray("group"),
		},
	}
}

func (s *Server) listLayouts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.orch.Layouts().Doctypes()})
}

func (s *Server) showLayout(c *gin.Context) {
	formModel, err := s.orch.Form(c.Request.Context(), c.Param("doctype"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, formModel)
}

// searchLink serves Link options. Callers either name the form field
// (form, field and a JSON "values" object of the current form values) or
// pass a resolved JSON "filters" object.
func (s *Server) searchLink(c *gin.Context) {
	query := orchestrator.LinkQuery{
		Target: c.Param("doctype"),
		Text:   c.Query("q"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, &failure.Failure{Kind: failure.KindValidation, Detail: "limit must be a number"})
			return
		}
		query.Limit = limit
	}
	if doctype, field := c.Query("form"), c.Query("field"); doctype != "" && field != "" {
		query.Doctype, query.Field = doctype, field
		if raw := c.Query("values"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &query.Values); err != nil {
				c.JSON(http.StatusBadRequest, &failure.Failure{Kind: failure.KindValidation, Detail: "values must be a JSON object"})
				return
			}
		}
	} else if raw := c.Query("filters"); raw != "" {
		var filter linkfilter.Filter
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			c.JSON(http.StatusBadRequest, &failure.Failure{Kind: failure.KindValidation, Detail: "filters must be a JSON object"})
			return
		}
		query.Filter = filter
	}

	options, err := s.orch.SearchLink(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options})
}

type revisionBody struct {
	Name      string `json:"name"`
	Modified  string `json:"modified"`
	DocStatus *int   `json:"docstatus"`
}

type submitBody struct {
	Values   map[string]any `json:"values"`
	Revision *revisionBody  `json:"revision"`
}

type submitResponse struct {
	Name     string         `json:"name"`
	Record   map[string]any `json:"record,omitempty"`
	Skipped  bool           `json:"skipped"`
	Changed  []string       `json:"changed,omitempty"`
	Cleared  []string       `json:"cleared,omitempty"`
	Redirect string         `json:"redirect"`
}

func (s *Server) submitJSON(c *gin.Context) {
	var body submitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, &failure.Failure{Kind: failure.KindValidation, Detail: "request body must be a JSON object"})
		return
	}
	req := orchestrator.SubmitRequest{
		Doctype: c.Param("doctype"),
		Name:    c.Param("name"),
		Values:  body.Values,
	}
	if rev := body.Revision; rev != nil {
		req.Revision = &submit.Revision{Name: rev.Name, Modified: rev.Modified, DocStatus: rev.DocStatus}
	}

	out, err := s.orch.Submit(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse{
		Name:     out.Name,
		Record:   out.Record,
		Skipped:  out.Result.Skipped,
		Changed:  out.Result.Changed,
		Cleared:  out.Cleared,
		Redirect: out.Redirect,
	})
}
