package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/facade/internal/application"
	"github.com/joacominatel/facade/internal/domain"
)

// NoteHandler handles note-related HTTP endpoints.
// every request reaches it with a unit of work already bound.
type NoteHandler struct {
	create *application.CreateNoteUseCase
	get    *application.GetNoteUseCase
	list   *application.ListNotesUseCase
	delete *application.DeleteNoteUseCase
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(
	create *application.CreateNoteUseCase,
	get *application.GetNoteUseCase,
	list *application.ListNotesUseCase,
	del *application.DeleteNoteUseCase,
) *NoteHandler {
	return &NoteHandler{
		create: create,
		get:    get,
		list:   list,
		delete: del,
	}
}

// RegisterRoutes registers note routes on the given group. write routes
// go through requireAuth.
func (h *NoteHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/notes", h.List)
	g.GET("/notes/:id", h.Get)
	g.POST("/notes", h.Create, requireAuth)
	g.DELETE("/notes/:id", h.Delete, requireAuth)
}

// noteResponse is the API representation of a note.
type noteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// listNotesResponse is the API response for listing notes.
type listNotesResponse struct {
	Notes  []noteResponse `json:"notes"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// createNoteRequest is the body of POST /notes.
type createNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// List returns notes newest first.
// GET /api/v1/notes?limit=20&offset=0
func (h *NoteHandler) List(c echo.Context) error {
	var input application.ListNotesInput
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a number")
		}
		input.Limit = parsed
	}
	if o := c.QueryParam("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be a number")
		}
		input.Offset = parsed
	}

	notes, err := h.list.Execute(c.Request().Context(), input)
	if err != nil {
		return err
	}

	response := listNotesResponse{
		Notes:  make([]noteResponse, 0, len(notes)),
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	for _, note := range notes {
		response.Notes = append(response.Notes, toNoteResponse(note))
	}

	return c.JSON(http.StatusOK, response)
}

// Get returns a single note.
// GET /api/v1/notes/:id
func (h *NoteHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := h.get.Execute(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	note, err := ref.Get(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toNoteResponse(note))
}

// Create stores a new note.
// POST /api/v1/notes
func (h *NoteHandler) Create(c echo.Context) error {
	var req createNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := h.create.Execute(c.Request().Context(), application.CreateNoteInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toNoteResponse(out.Note))
}

// Delete removes a note.
// DELETE /api/v1/notes/:id
func (h *NoteHandler) Delete(c echo.Context) error {
	if err := h.delete.Execute(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// toNoteResponse converts a domain note to API response.
func toNoteResponse(n *domain.Note) noteResponse {
	return noteResponse{
		ID:        n.ID().String(),
		Title:     n.Title().String(),
		Body:      n.Body(),
		CreatedAt: n.CreatedAt(),
		UpdatedAt: n.UpdatedAt(),
	}
}
