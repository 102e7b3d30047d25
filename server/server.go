package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kdriscoll/histrag/internal/types"
	"github.com/kdriscoll/histrag/pkg/llm"
	"github.com/kdriscoll/histrag/pkg/pipeline"
	"github.com/kdriscoll/histrag/pkg/scraper"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr            string
	Streaming       bool
	SearchLimit     int
	ScrapeMaxPages  int
	ScrapeRateLimit float64
}

// WSServer serves the chat loop over a websocket instead of a terminal.
type WSServer struct {
	config     Config
	chatEngine *llm.ChatEngine
	embedder   types.Embedder
	store      types.VectorStore
	pipeline   *pipeline.Pipeline
	logger     *log.Logger
}

func New(config Config, chatEngine *llm.ChatEngine, embedder types.Embedder,
	store types.VectorStore, pipe *pipeline.Pipeline, logger *log.Logger) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WSServer{
		config:     config,
		chatEngine: chatEngine,
		embedder:   embedder,
		store:      store,
		pipeline:   pipe,
		logger:     logger,
	}
}

func (s *WSServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) ListenAndServe() error {
	s.logger.Printf("starting websocket server on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Routes())
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// gorilla/websocket allows one concurrent writer per connection
	client := &client{conn: conn}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("error reading message: %v", err)
			}
			break
		}
		go s.handleMessage(r.Context(), client, msg)
	}
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(logger *log.Logger, msgType, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		logger.Printf("error sending message: %v", err)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *client, msg Message) {
	query := msg.Content

	// A pasted archive URL triggers an inline scrape-and-ingest.
	if url := urlRegex.FindString(query); url != "" {
		if !s.scrapeAndIngest(ctx, c, url) {
			return
		}
		if strings.TrimSpace(query) == url {
			return
		}
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		c.send(s.logger, "error", fmt.Sprintf("Failed to create query embedding: %v", err))
		return
	}

	docs, err := s.store.Query(ctx, embedding, s.config.SearchLimit)
	if err != nil {
		c.send(s.logger, "error", fmt.Sprintf("Error querying documents: %v", err))
		return
	}

	if s.config.Streaming {
		chunks, errc := s.chatEngine.ChatStream(ctx, query, docs)
		for chunk := range chunks {
			c.send(s.logger, "stream", chunk)
		}
		if err := <-errc; err != nil {
			c.send(s.logger, "error", err.Error())
			return
		}
		c.send(s.logger, "done", llm.FormatSources(docs))
	} else {
		response, err := s.chatEngine.Chat(ctx, query, docs)
		if err != nil {
			c.send(s.logger, "error", err.Error())
			return
		}
		c.send(s.logger, "response", response+llm.FormatSources(docs))
	}
}

func (s *WSServer) scrapeAndIngest(ctx context.Context, c *client, url string) bool {
	c.send(s.logger, "status", fmt.Sprintf("Processing URL: %s", url))

	scraped := 0
	sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:   url,
		MaxPages:  s.config.ScrapeMaxPages,
		RateLimit: s.config.ScrapeRateLimit,
		Logger:    s.logger,
		OnProgress: func(title string) {
			scraped++
			c.send(s.logger, "progress", fmt.Sprintf("Scraped %d documents", scraped))
		},
	})
	if err != nil {
		c.send(s.logger, "error", fmt.Sprintf("Failed to initialize scraper: %v", err))
		return false
	}

	docs, err := sc.Scrape(ctx, url)
	if err != nil {
		c.send(s.logger, "error", fmt.Sprintf("Failed to scrape URL: %v", err))
		return false
	}
	c.send(s.logger, "status", fmt.Sprintf("Scraped %d documents", len(docs)))

	chunks, err := s.pipeline.Ingest(ctx, docs)
	if err != nil {
		c.send(s.logger, "error", fmt.Sprintf("Failed to ingest documents: %v", err))
		return false
	}
	c.send(s.logger, "status", fmt.Sprintf("Stored %d chunks", chunks))
	return true
}
