package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
)

var (
	errNoImages       = errors.New("nenhuma imagem enviada")
	errInvalidImage   = errors.New("tipo de arquivo não permitido")
	errUploadTooLarge = errors.New("arquivo excede o tamanho máximo")
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// CatalogHandler serves clients and products.
type CatalogHandler struct {
	clients   db.ClientCollection
	products  db.ProductCollection
	uploadDir string
	maxUpload int64
}

func NewCatalogHandler(clients db.ClientCollection, products db.ProductCollection, uploadDir string, maxUpload int64) *CatalogHandler {
	return &CatalogHandler{clients: clients, products: products, uploadDir: uploadDir, maxUpload: maxUpload}
}

// ListClients accepts ?q= as a case-insensitive name fragment.
func (h *CatalogHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.FindClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *CatalogHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.FindClientByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *CatalogHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var client models.Client
	if err := decodeJSON(r, &client); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		writeError(w, http.StatusBadRequest, "Nome do cliente é obrigatório")
		return
	}
	if err := h.clients.InsertClient(r.Context(), &client); err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *CatalogHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var client models.Client
	if err := decodeJSON(r, &client); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		writeError(w, http.StatusBadRequest, "Nome do cliente é obrigatório")
		return
	}
	if err := h.clients.UpdateClient(r.Context(), id, client); err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	updated, err := h.clients.FindClientByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadClientImages stores every file of the multipart "images" field and
// appends the stored paths to the client.
func (h *CatalogHandler) UploadClientImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.clients.FindClientByID(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, errUploadTooLarge.Error())
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errNoImages.Error())
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := h.saveImage(fh)
		if err != nil {
			removeFiles(paths)
			if errors.Is(err, errInvalidImage) {
				writeError(w, http.StatusBadRequest, err.Error(), fh.Filename)
				return
			}
			middleware.Logger(r.Context()).WithError(err).Error("failed to store image")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths = append(paths, path)
	}

	if err := h.clients.AddClientImages(r.Context(), id, paths); err != nil {
		removeFiles(paths)
		writeStoreError(w, r, err, "Cliente não encontrado")
		return
	}
	middleware.Logger(r.Context()).WithFields(log.Fields{"client_id": id, "images": len(paths)}).Info("client images stored")
	writeJSON(w, http.StatusCreated, map[string][]string{"image": paths})
}

// saveImage writes fh under uploadDir with a random name. The type is sniffed
// from the content, not taken from the client.
func (h *CatalogHandler) saveImage(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(src, head)
	ext, ok := imageTypes[http.DetectContentType(head[:n])]
	if !ok {
		return "", errInvalidImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return filepath.ToSlash(path), nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(filepath.FromSlash(p))
	}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.FindProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.FindProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := decodeJSON(r, &product); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		writeError(w, http.StatusBadRequest, "Nome do produto é obrigatório")
		return
	}
	if err := h.products.InsertProduct(r.Context(), &product); err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var product models.Product
	if err := decodeJSON(r, &product); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		writeError(w, http.StatusBadRequest, "Nome do produto é obrigatório")
		return
	}
	if err := h.products.UpdateProduct(r.Context(), id, product); err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	updated, err := h.products.FindProductByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err, "Produto não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
