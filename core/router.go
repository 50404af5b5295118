package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired. The authenticator
// and identity resolver are built here from the codec, hasher, and account
// store so every protected route shares one resolution path.
func NewRouter(
	cfg Config,
	codec *TokenCodec,
	hasher PasswordHasher,
	limiter *LoginLimiter,
	accounts AccountRepository,
	novelists NovelistRepository,
	books BookRepository,
) *gin.Engine {
	r := gin.Default()

	r.Use(OriginMiddleware(cfg))

	authenticator := NewAuthenticator(accounts, hasher)
	resolver := NewIdentityResolver(codec, accounts)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello World!"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/token", func(c *gin.Context) {
			var form struct {
				Username string `form:"username" binding:"required"`
				Password string `form:"password" binding:"required"`
			}
			if err := c.ShouldBind(&form); err != nil {
				respondDetail(c, http.StatusBadRequest, "username and password are required")
				return
			}

			ctx := c.Request.Context()
			if !limiter.Allow(ctx, form.Username, c.ClientIP()) {
				respondDetail(c, http.StatusTooManyRequests, "Too many login attempts.")
				return
			}

			identity, err := authenticator.Authenticate(ctx, form.Username, form.Password)
			if err != nil {
				limiter.RecordFailure(ctx, form.Username, c.ClientIP())
				respondDetail(c, http.StatusBadRequest, "Incorrect email or password.")
				return
			}

			token, err := codec.Issue(map[string]string{"sub": identity.Email})
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to issue token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"token_type": "Bearer", "access_token": token})
		})

		auth.POST("/refresh_token", RequireIdentity(resolver), func(c *gin.Context) {
			token, err := resolver.Refresh(currentIdentity(c))
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to issue token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"token_type": "Bearer", "access_token": token})
		})
	}

	users := r.Group("/users")
	{
		users.POST("/user", func(c *gin.Context) {
			var req struct {
				Username string `json:"username" binding:"required"`
				Email    string `json:"email" binding:"required,email"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "username, email and password are required")
				return
			}
			username := sanitizeName(req.Username)
			if username == "" {
				respondDetail(c, http.StatusBadRequest, "invalid username")
				return
			}

			ctx := c.Request.Context()
			existing, err := accounts.FindByUsernameOrEmail(ctx, username, req.Email)
			if err != nil && !errors.Is(err, ErrNotFound) {
				respondDetail(c, http.StatusInternalServerError, "failed to check existing accounts")
				return
			}
			if existing != nil {
				if existing.Username == username {
					respondDetail(c, http.StatusConflict, "Username already exists.")
				} else {
					respondDetail(c, http.StatusConflict, "Email already exists.")
				}
				return
			}

			hash, err := hasher.Hash(req.Password)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to hash password")
				return
			}
			id, err := accounts.Create(ctx, username, req.Email, hash)
			if err != nil {
				if errors.Is(err, ErrDuplicate) {
					respondDetail(c, http.StatusConflict, "Username or Email already exists.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to create account")
				return
			}
			c.JSON(http.StatusCreated, AccountPublic{ID: id, Username: username, Email: req.Email})
		})

		users.GET("/", func(c *gin.Context) {
			items, err := accounts.List(c.Request.Context())
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to fetch users")
				return
			}
			c.JSON(http.StatusOK, gin.H{"users": items})
		})

		users.GET("/user/:id", RequireIdentity(resolver), func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			if EnsureOwner(currentIdentity(c), id) != nil {
				respondDetail(c, http.StatusUnauthorized, "Unauthorized.")
				return
			}
			acc, err := accounts.FindByID(c.Request.Context(), id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "User not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch user")
				return
			}
			c.JSON(http.StatusOK, AccountPublic{ID: acc.ID, Username: acc.Username, Email: acc.Email})
		})

		users.PUT("/user/:id", RequireIdentity(resolver), func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			if EnsureOwner(currentIdentity(c), id) != nil {
				respondDetail(c, http.StatusUnauthorized, "Unauthorized.")
				return
			}
			var req struct {
				Username string `json:"username" binding:"required"`
				Email    string `json:"email" binding:"required,email"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "username, email and password are required")
				return
			}
			username := sanitizeName(req.Username)
			if username == "" {
				respondDetail(c, http.StatusBadRequest, "invalid username")
				return
			}
			hash, err := hasher.Hash(req.Password)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to hash password")
				return
			}
			if err := accounts.Update(c.Request.Context(), id, username, req.Email, hash); err != nil {
				if errors.Is(err, ErrDuplicate) {
					respondDetail(c, http.StatusConflict, "Username or Email already exists.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to update user")
				return
			}
			c.JSON(http.StatusOK, AccountPublic{ID: id, Username: username, Email: req.Email})
		})

		users.DELETE("/user/:id", RequireIdentity(resolver), func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			if EnsureOwner(currentIdentity(c), id) != nil {
				respondDetail(c, http.StatusUnauthorized, "Unauthorized.")
				return
			}
			if err := accounts.Delete(c.Request.Context(), id); err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to delete user")
				return
			}
			respondMessage(c, http.StatusOK, "User deleted successfully.")
		})
	}

	nv := r.Group("/novelists")
	nv.Use(RequireIdentity(resolver))
	{
		nv.POST("/novelist", func(c *gin.Context) {
			var req struct {
				Name string `json:"name" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "name is required")
				return
			}
			name := sanitizeName(req.Name)
			if name == "" {
				respondDetail(c, http.StatusBadRequest, "invalid name")
				return
			}

			ctx := c.Request.Context()
			if _, err := novelists.FindByName(ctx, name); err == nil {
				respondDetail(c, http.StatusConflict, "Name already exists.")
				return
			} else if !errors.Is(err, ErrNotFound) {
				respondDetail(c, http.StatusInternalServerError, "failed to check existing novelists")
				return
			}

			n, err := novelists.Create(ctx, name)
			if err != nil {
				if errors.Is(err, ErrDuplicate) {
					respondDetail(c, http.StatusConflict, "Name already exists.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to create novelist")
				return
			}
			c.JSON(http.StatusCreated, n)
		})

		nv.GET("/novelist/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			n, err := novelists.Get(c.Request.Context(), id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Novelist not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch novelist")
				return
			}
			c.JSON(http.StatusOK, n)
		})

		nv.PATCH("/novelist/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			var req struct {
				Name *string `json:"name"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}

			ctx := c.Request.Context()
			current, err := novelists.Get(ctx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Novelist not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch novelist")
				return
			}
			if req.Name == nil {
				c.JSON(http.StatusOK, current)
				return
			}

			name := sanitizeName(*req.Name)
			if name == "" {
				respondDetail(c, http.StatusBadRequest, "invalid name")
				return
			}
			// Any record holding the name conflicts, including the target itself.
			if _, err := novelists.FindByName(ctx, name); err == nil {
				respondDetail(c, http.StatusConflict, "Name already exists.")
				return
			} else if !errors.Is(err, ErrNotFound) {
				respondDetail(c, http.StatusInternalServerError, "failed to check existing novelists")
				return
			}

			n, err := novelists.Update(ctx, id, name)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to update novelist")
				return
			}
			c.JSON(http.StatusOK, n)
		})

		nv.DELETE("/novelist/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			if err := novelists.Delete(c.Request.Context(), id); err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Novelist not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to delete novelist")
				return
			}
			respondMessage(c, http.StatusOK, "Novelist deleted in MADR.")
		})

		nv.GET("/", func(c *gin.Context) {
			page, limit, ok := listParams(c)
			if !ok {
				return
			}
			name := c.Query("name")
			if name != "" && len(name) > maxFilterLength {
				respondDetail(c, http.StatusBadRequest, "name filter too long")
				return
			}
			items, err := novelists.List(c.Request.Context(), name, page, limit)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to fetch novelists")
				return
			}
			c.JSON(http.StatusOK, gin.H{"novelists": items})
		})
	}

	bk := r.Group("/books")
	bk.Use(RequireIdentity(resolver))
	{
		bk.POST("/", func(c *gin.Context) {
			var req struct {
				Title      string `json:"title" binding:"required"`
				Year       int    `json:"year" binding:"required"`
				NovelistID int64  `json:"novelist_id" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "title, year and novelist_id are required")
				return
			}

			ctx := c.Request.Context()
			if _, err := novelists.Get(ctx, req.NovelistID); err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Novelist not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch novelist")
				return
			}

			title := sanitizeName(req.Title)
			if title == "" {
				respondDetail(c, http.StatusBadRequest, "invalid title")
				return
			}
			if _, err := books.FindByTitle(ctx, title); err == nil {
				respondDetail(c, http.StatusConflict, "Title already exists.")
				return
			} else if !errors.Is(err, ErrNotFound) {
				respondDetail(c, http.StatusInternalServerError, "failed to check existing books")
				return
			}

			b, err := books.Create(ctx, title, req.Year, req.NovelistID)
			if err != nil {
				if errors.Is(err, ErrDuplicate) {
					respondDetail(c, http.StatusConflict, "Title already exists.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to create book")
				return
			}
			c.JSON(http.StatusCreated, b)
		})

		bk.GET("/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			b, err := books.Get(c.Request.Context(), id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Book not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch book")
				return
			}
			c.JSON(http.StatusOK, b)
		})

		bk.PATCH("/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			var req struct {
				Title      *string `json:"title"`
				Year       *int    `json:"year"`
				NovelistID *int64  `json:"novelist_id"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}

			ctx := c.Request.Context()
			if _, err := books.Get(ctx, id); err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Book not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to fetch book")
				return
			}
			if req.NovelistID != nil {
				if _, err := novelists.Get(ctx, *req.NovelistID); err != nil {
					if errors.Is(err, ErrNotFound) {
						respondDetail(c, http.StatusNotFound, "Novelist not found.")
						return
					}
					respondDetail(c, http.StatusInternalServerError, "failed to fetch novelist")
					return
				}
			}

			in := BookUpdateInput{Year: req.Year, NovelistID: req.NovelistID}
			if req.Title != nil {
				title := sanitizeName(*req.Title)
				if title == "" {
					respondDetail(c, http.StatusBadRequest, "invalid title")
					return
				}
				if _, err := books.FindByTitle(ctx, title); err == nil {
					respondDetail(c, http.StatusConflict, "Title already exists.")
					return
				} else if !errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusInternalServerError, "failed to check existing books")
					return
				}
				in.Title = &title
			}

			b, err := books.Update(ctx, id, in)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to update book")
				return
			}
			c.JSON(http.StatusOK, b)
		})

		bk.DELETE("/:id", func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				return
			}
			if err := books.Delete(c.Request.Context(), id); err != nil {
				if errors.Is(err, ErrNotFound) {
					respondDetail(c, http.StatusNotFound, "Book not found.")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to delete book")
				return
			}
			respondMessage(c, http.StatusOK, "Book deleted successfully.")
		})

		bk.GET("/", func(c *gin.Context) {
			page, limit, ok := listParams(c)
			if !ok {
				return
			}
			title := c.Query("title")
			if title != "" && len(title) > maxFilterLength {
				respondDetail(c, http.StatusBadRequest, "title filter too long")
				return
			}
			year := 0
			if yearStr := strings.TrimSpace(c.Query("year")); yearStr != "" {
				y, err := strconv.Atoi(yearStr)
				if err != nil || y < minBookYear || y > time.Now().Year() {
					respondDetail(c, http.StatusBadRequest, "invalid year filter")
					return
				}
				year = y
			}
			items, err := books.List(c.Request.Context(), title, year, page, limit)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to fetch books")
				return
			}
			c.JSON(http.StatusOK, gin.H{"books": items})
		})
	}

	return r
}

const (
	defaultListLimit = 20
	maxFilterLength  = 80
	minBookYear      = 1900
)

// pathID parses the :id path segment, responding 400 on anything that is not
// a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondDetail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// listParams parses page/limit query values. Limit zero is legal and yields
// an empty page; page defaults to 1.
func listParams(c *gin.Context) (page, limit int, ok bool) {
	page = 1
	limit = defaultListLimit
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 {
			respondDetail(c, http.StatusBadRequest, "page must be a positive integer")
			return 0, 0, false
		}
		page = p
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			respondDetail(c, http.StatusBadRequest, "limit must be zero or a positive integer")
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}
