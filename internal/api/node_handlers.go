package api

import (
	"fmt"
	"io"
	"net/http"

	"lockbox/internal/vault"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadBytes = 1 << 30

type CreateFolderRequest struct {
	Name     string  `json:"name" validate:"required" example:"Projects"`
	ParentID *string `json:"parent_id" example:"_vx2a-43VqRT5wz_s9u4"`
}

type CreateNoteRequest struct {
	Title    string  `json:"title" validate:"required" example:"Shopping list"`
	Content  string  `json:"content" example:"milk, eggs"`
	ParentID *string `json:"parent_id"`
}

type UpdateNodeRequest struct {
	Name *string `json:"name" example:"Renamed"`
	// An empty string moves the node to the owner's root.
	ParentID *string `json:"parent_id"`
}

type UpdateContentRequest struct {
	Content string `json:"content"`
}

// @Summary      Create a folder
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateFolderRequest  true  "Folder"
// @Success      201      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse "Parent folder not found"
// @Router       /nodes/folder [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.service.CreateFolder(r.Context(), claims.UserID, req.Name, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// @Summary      Create a note
// @Description  Creates a text note stored inline with the node.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateNoteRequest  true  "Note"
// @Success      201      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /nodes/note [post]
func (s *Server) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateNoteRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.service.CreateNote(r.Context(), claims.UserID, req.Title, req.Content, req.ParentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// @Summary      Upload a file
// @Tags         nodes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File to upload"
// @Param        parent_id  formData  string  false  "Destination folder"
// @Success      201        {object}  models.Node
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /nodes/file [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "error parsing multipart form"})
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "error retrieving the file"})
		return
	}
	defer file.Close()

	var parentID *string
	if v := r.FormValue("parent_id"); v != "" {
		parentID = &v
	}

	node, err := s.service.UploadFile(r.Context(), claims.UserID, vault.UploadParams{
		Name:     handler.Filename,
		MimeType: handler.Header.Get("Content-Type"),
		Size:     handler.Size,
		Data:     file,
		ParentID: parentID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// @Summary      List a folder
// @Description  Lists the caller's root, or the contents of a folder the caller may read.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        parent_id        query     string  false  "Folder to list; omit for the root"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked folder"
// @Success      200              {array}   models.Node
// @Failure      403              {object}  ErrorResponse
// @Failure      404              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes [get]
func (s *Server) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodes, err := s.service.ListChildren(r.Context(), claims.UserID, optionalQuery(r, "parent_id"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// @Summary      Get a node
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId           path      string  true   "Node ID"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked node"
// @Success      200              {object}  models.Node
// @Failure      401              {object}  ErrorResponse
// @Failure      403              {object}  ErrorResponse
// @Failure      404              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId} [get]
func (s *Server) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	node, err := s.service.Get(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Download file content
// @Tags         nodes
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        nodeId           path      string  true   "Node ID"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked node"
// @Success      200              {file}    binary
// @Failure      400              {object}  ErrorResponse "Node is a folder"
// @Failure      403              {object}  ErrorResponse
// @Failure      404              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	node, content, err := s.service.OpenContent(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+"\"")
	if node.MimeType != nil && *node.MimeType != "" {
		w.Header().Set("Content-Type", *node.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	if _, err := io.Copy(w, content); err != nil {
		s.logger.Warn("download interrupted", zap.String("node_id", node.ID), zap.Error(err))
	}
}

// @Summary      Download a folder as zip
// @Tags         nodes
// @Produce      application/zip
// @Security     BearerAuth
// @Param        nodeId  path      string  true  "Folder ID"
// @Success      200     {file}    binary
// @Failure      400     {object}  ErrorResponse "Node is not a folder"
// @Failure      403     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /nodes/{nodeId}/archive [get]
func (s *Server) DownloadArchiveHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	archive, err := s.service.PrepareArchive(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+archive.Name+".zip\"")
	w.Header().Set("Content-Type", "application/zip")

	if err := archive.Write(r.Context(), w); err != nil {
		s.logger.Warn("archive interrupted",
			zap.String("node_id", chi.URLParam(r, "nodeId")),
			zap.Int("entries", archive.Len()),
			zap.Error(err))
	}
}

// @Summary      Render a note as HTML
// @Tags         nodes
// @Produce      html
// @Security     BearerAuth
// @Param        nodeId           path      string  true   "Node ID"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked node"
// @Success      200              {string}  string  "HTML"
// @Failure      400              {object}  ErrorResponse "Node is not a note"
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId}/render [get]
func (s *Server) RenderNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	html, err := s.service.RenderNote(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// @Summary      Rename or move a node
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId           path      string             true   "Node ID"
// @Param        request          body      UpdateNodeRequest  true   "Changes"
// @Param        X-Lock-Password  header    string             false  "Secret of a locked node"
// @Success      200              {object}  models.Node
// @Failure      400              {object}  ErrorResponse
// @Failure      403              {object}  ErrorResponse
// @Failure      404              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId} [patch]
func (s *Server) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")
	secret := lockSecret(r)

	var req UpdateNodeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == nil && req.ParentID == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "no update operation specified (provide 'name' or 'parent_id')"})
		return
	}

	update := vault.UpdateParams{Name: req.Name}
	if req.ParentID != nil {
		update.Move = true
		if *req.ParentID != "" {
			update.ParentID = req.ParentID
		}
	}

	node, err := s.service.Update(r.Context(), claims.UserID, nodeID, update, secret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Replace the text of a note
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId           path      string                true   "Node ID"
// @Param        request          body      UpdateContentRequest  true   "New content"
// @Param        X-Lock-Password  header    string                false  "Secret of a locked node"
// @Success      200              {object}  models.Node
// @Failure      400              {object}  ErrorResponse
// @Failure      403              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId}/content [put]
func (s *Server) UpdateNoteContentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req UpdateContentRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.service.UpdateNoteContent(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), req.Content, lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Duplicate a file
// @Description  Copies a file as "Copy of <name>". Grantees receive the copy in their own root.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId           path      string  true   "Node ID"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked node"
// @Success      201              {object}  models.Node
// @Failure      400              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId}/duplicate [post]
func (s *Server) DuplicateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	node, err := s.service.Duplicate(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// @Summary      Delete a node
// @Description  Deletes a file, or a folder with everything below it. Only the owner may delete.
// @Tags         nodes
// @Security     BearerAuth
// @Param        nodeId  path      string  true  "Node ID"
// @Success      204     {null}    nil     "No Content"
// @Failure      403     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  PartialDeleteResponse
// @Router       /nodes/{nodeId} [delete]
func (s *Server) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	if err := s.service.Delete(r.Context(), claims.UserID, chi.URLParam(r, "nodeId")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      List folders
// @Description  All folders of the caller, newest first.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Node
// @Router       /folders [get]
func (s *Server) ListFoldersHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	folders, err := s.service.ListFolders(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folders)
}

// @Summary      List files by category
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        category   query     string  true   "image, pdf, note or other"
// @Param        folder_id  query     string  false  "Restrict to one folder"
// @Param        q          query     string  false  "Case-insensitive search in names and note text"
// @Success      200        {array}   models.Node
// @Failure      400        {object}  ErrorResponse
// @Router       /files [get]
func (s *Server) ListByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	query := r.URL.Query()

	files, err := s.service.ListByCategory(r.Context(), claims.UserID, query.Get("category"), optionalQuery(r, "folder_id"), query.Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// @Summary      List files grouped by category
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  vault.OrganizedFiles
// @Router       /files/organized [get]
func (s *Server) ListOrganizedHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	organized, err := s.service.ListOrganized(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, organized)
}
