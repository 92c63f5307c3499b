package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dododo1295/notetree/dto"
	"github.com/dododo1295/notetree/middleware"
	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/usecase"
	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func GetUserNotesHandler(c *gin.Context, notesService *usecase.NotesService) {
	notes, err := notesService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, notes)
}

func GetNoteTreeHandler(c *gin.Context, notesService *usecase.NotesService) {
	forest, err := notesService.Forest(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, forest)
}

func GetUserTagsHandler(c *gin.Context, notesService *usecase.NotesService) {
	tags, err := notesService.Tags(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, tags)
}

func SearchNotesHandler(c *gin.Context, notesService *usecase.NotesService) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	notes, err := notesService.Search(c.Request.Context(), middleware.UserID(c), query.Q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, notes)
}

func GetNoteHandler(c *gin.Context, notesService *usecase.NotesService) {
	var uri dto.NoteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		utils.BadRequest(c, model.ErrInvalidID.Error())
		return
	}

	note, err := notesService.GetByID(c.Request.Context(), middleware.UserID(c), uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, note)
}

func CreateNoteHandler(c *gin.Context, notesService *usecase.NotesService) {
	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in, err := req.ToInput()
	if err != nil {
		respondError(c, err)
		return
	}

	note, err := notesService.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, note)
}

func UpdateNoteHandler(c *gin.Context, notesService *usecase.NotesService) {
	var uri dto.NoteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		utils.BadRequest(c, model.ErrInvalidID.Error())
		return
	}

	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	update, err := req.ToUpdate()
	if err != nil {
		respondError(c, err)
		return
	}

	note, err := notesService.Update(c.Request.Context(), middleware.UserID(c), uri.ID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, note)
}

func DeleteNoteHandler(c *gin.Context, notesService *usecase.NotesService) {
	var uri dto.NoteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		utils.BadRequest(c, model.ErrInvalidID.Error())
		return
	}

	if err := notesService.Delete(c.Request.Context(), middleware.UserID(c), uri.ID); err != nil {
		respondError(c, err)
		return
	}
	utils.NoContent(c)
}

// respondError maps service errors onto status codes.
func respondError(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, model.ErrInvalidID):
		utils.BadRequest(c, model.ErrInvalidID.Error())
	case errors.Is(err, model.ErrNoteNotFound):
		utils.NotFound(c, model.ErrNoteNotFound.Error())
	case errors.As(err, &ve):
		utils.TrackError("validation", ve.Field)
		utils.BadRequest(c, ve.Error())
	case errors.Is(err, model.ErrUnauthorized):
		utils.Unauthorized(c, "Invalid token")
	case model.IsTransient(err):
		utils.Logger.Error("store unavailable", zap.Error(err), zap.String("request_id", c.GetString(middleware.RequestIDKey)))
		utils.ServiceUnavailable(c, "Storage temporarily unavailable")
	default:
		utils.Logger.Error("unexpected error", zap.Error(err), zap.String("request_id", c.GetString(middleware.RequestIDKey)))
		utils.InternalError(c, "Internal server error")
	}
}

func respondBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		utils.RequestTooLarge(c, "Request body too large")
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		utils.TrackError("validation", fe.Field())
		utils.BadRequest(c, bindingMessage(fe))
		return
	}
	utils.BadRequest(c, "Invalid request body")
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "notetag":
		return fmt.Sprintf("%s may not contain commas or line breaks", fe.Field())
	case "objectid":
		return model.ErrInvalidID.Error()
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
