package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	"AbsenSend/internal/metrics"

	// Session-store drivers for whatsmeow's sqlstore.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotRegistered is a skip signal: the phone number exists but has no
	// WhatsApp account. It is not a transport failure.
	ErrNotRegistered = errors.New("recipient is not registered on WhatsApp")

	ErrSessionClosed = errors.New("session is not connected")
)

type SessionConfig struct {
	DBDialect      string
	DBDSN          string
	QRImageFile    string
	ReconnectDelay time.Duration
	SendRate       rate.Limit
}

// Session owns the single outbound WhatsApp connection for the process
// lifetime. Credential rotation is persisted synchronously by whatsmeow's
// sqlstore, so the device store must never be bypassed.
type Session struct {
	cfg     SessionConfig
	log     *zap.Logger
	limiter *rate.Limiter

	client *whatsmeow.Client
	device interface {
		Delete(ctx context.Context) error
	}

	mu        sync.Mutex
	connected bool
	closed    bool

	onOpen    func()
	loggedOut chan struct{}
	outOnce   sync.Once
}

func NewSession(cfg SessionConfig, log *zap.Logger) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = 1
	}
	return &Session{
		cfg:       cfg,
		log:       log,
		limiter:   rate.NewLimiter(cfg.SendRate, 1),
		loggedOut: make(chan struct{}),
	}
}

// SetOnOpen registers a callback invoked on every successful connection open,
// before which the session must not be used for sends.
func (s *Session) SetOnOpen(fn func()) {
	s.onOpen = fn
}

// LoggedOut is closed when the network confirms a permanent logout. The
// credentials are wiped by then and the process must exit for re-pairing.
func (s *Session) LoggedOut() <-chan struct{} {
	return s.loggedOut
}

// Connect loads the persisted device state and opens the connection. With no
// stored credentials it renders a pairing QR to the terminal (and a PNG when
// configured) and waits for an out-of-band scan.
func (s *Session) Connect(ctx context.Context) error {
	container, err := sqlstore.New(ctx, s.cfg.DBDialect, s.cfg.DBDSN, waLog.Noop)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}
	s.device = device

	client := whatsmeow.NewClient(device, waLog.Noop)
	client.EnableAutoReconnect = false
	client.AddEventHandler(s.handleEvent)
	s.client = client

	if client.Store.ID == nil {
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("request pairing channel: %w", err)
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect for pairing: %w", err)
		}
		go s.renderQR(qrChan)
		return nil
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (s *Session) renderQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		if item.Event != "code" {
			s.log.Info("pairing event", zap.String("event", item.Event))
			continue
		}

		qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
		if s.cfg.QRImageFile != "" {
			if err := qrcode.WriteFile(item.Code, qrcode.Medium, 256, s.cfg.QRImageFile); err != nil {
				s.log.Warn("failed to write pairing QR image", zap.Error(err))
			} else {
				s.log.Info("pairing QR written", zap.String("file", s.cfg.QRImageFile))
			}
		}
	}
}

func (s *Session) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		s.log.Info("whatsapp session open")
		if s.onOpen != nil {
			go s.onOpen()
		}

	case *events.Disconnected:
		s.mu.Lock()
		s.connected = false
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		s.log.Warn("whatsapp session closed, scheduling reconnect",
			zap.Duration("delay", s.cfg.ReconnectDelay))
		go s.reconnect()

	case *events.LoggedOut:
		s.mu.Lock()
		s.connected = false
		s.closed = true
		s.mu.Unlock()
		s.log.Error("logged out by the network, wiping credentials",
			zap.Any("reason", e.Reason))
		if err := s.device.Delete(context.Background()); err != nil {
			s.log.Error("failed to wipe credentials", zap.Error(err))
		}
		s.outOnce.Do(func() { close(s.loggedOut) })
	}
}

func (s *Session) reconnect() {
	time.Sleep(s.cfg.ReconnectDelay)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	metrics.SessionReconnects.Inc()
	if err := s.client.Connect(); err != nil {
		s.log.Error("reconnect failed", zap.Error(err))
		go s.reconnect()
	}
}

func (s *Session) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SendText delivers a plain text message to a JID. Failures are the caller's
// to interpret; the session never touches job state.
func (s *Session) SendText(ctx context.Context, jid, text string) error {
	to, err := types.ParseJID(jid)
	if err != nil {
		return fmt.Errorf("parse recipient %q: %w", jid, err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if !s.isConnected() {
		return ErrSessionClosed
	}

	_, err = s.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return err
}

// SendDocument uploads the bytes and delivers them as a document attachment
// with the message as caption.
func (s *Session) SendDocument(ctx context.Context, jid string, data []byte, mimetype, fileName, caption string) error {
	to, err := types.ParseJID(jid)
	if err != nil {
		return fmt.Errorf("parse recipient %q: %w", jid, err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if !s.isConnected() {
		return ErrSessionClosed
	}

	up, err := s.client.Upload(ctx, data, whatsmeow.MediaDocument)
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}

	_, err = s.client.SendMessage(ctx, to, &waE2E.Message{
		DocumentMessage: &waE2E.DocumentMessage{
			Title:         proto.String(fileName),
			FileName:      proto.String(fileName),
			Mimetype:      proto.String(mimetype),
			Caption:       proto.String(caption),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		},
	})
	return err
}

// ResolvePhone checks that a normalized phone number has a WhatsApp account
// and returns its JID. Absence surfaces as ErrNotRegistered.
func (s *Session) ResolvePhone(ctx context.Context, digits string) (string, error) {
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + digits})
	if err != nil {
		return "", fmt.Errorf("contact lookup for %s: %w", digits, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return "", ErrNotRegistered
	}
	return resp[0].JID.String(), nil
}

// JoinedGroups lists every group the session participates in.
func (s *Session) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	return s.client.GetJoinedGroups(ctx)
}

// Close disconnects gracefully. It deliberately does not log out: a logout
// invalidates the paired credentials, which must survive restarts.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.client != nil {
		s.client.Disconnect()
	}
}
