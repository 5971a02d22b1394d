package handlers

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
)

const maxRegistrationFileBytes = 10 << 20

var registrationFileTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

func (h *Handler) submitContact(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRegistrationFileBytes+(1<<20))
	var input models.NewContact
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "invalid contact form")
		return
	}
	input.Email = utils.NormalizeEmail(input.Email)
	if err := h.validator().Struct(input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "invalid contact form",
			"fields": utils.ProcessValidationErrors(err),
		})
		return
	}
	if input.Phone != "" {
		phone, err := utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
		if err != nil {
			badRequest(c, "invalid phone number")
			return
		}
		input.Phone = phone
	}

	registrationFile, ok := h.uploadRegistrationFile(c)
	if !ok {
		return
	}

	contact, err := h.Contacts.Create(c.Request.Context(), &input, registrationFile)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Mailer != nil && h.Tasks != nil {
		snapshot := *contact
		h.Tasks.Go(c.Request.Context(), "mail-contact-submission", func(ctx context.Context) error {
			return h.Mailer.SendContactSubmission(ctx, &snapshot)
		})
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Contact form submitted", "contact": contact})
}

// uploadRegistrationFile stores the optional pdf/jpg/png attachment and returns its URL.
func (h *Handler) uploadRegistrationFile(c *gin.Context) (string, bool) {
	file, _, err := c.Request.FormFile("registrationFile")
	if err == http.ErrMissingFile {
		return "", true
	}
	if err != nil {
		badRequest(c, "could not read registration file")
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxRegistrationFileBytes+1))
	if err != nil || len(data) == 0 {
		badRequest(c, "could not read registration file")
		return "", false
	}
	if len(data) > maxRegistrationFileBytes {
		badRequest(c, "registration file exceeds 10 MiB")
		return "", false
	}
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := registrationFileTypes[contentType]
	if !ok {
		badRequest(c, "Only PDF, JPG, or PNG files are allowed")
		return "", false
	}
	if h.Files == nil {
		respondError(c, errStorageDisabled)
		return "", false
	}

	url, err := h.Files.Put(c.Request.Context(), path.Join("contacts", uuid.NewString()+ext), data, contentType)
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return url, true
}

func (h *Handler) listContacts(c *gin.Context) {
	contacts, err := h.Contacts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}
