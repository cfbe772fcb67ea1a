package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService mirrors reservations into a Google spreadsheet for the
// activity owner. The sheet is a read model; the remote reservation service
// stays the source of truth.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Reservations!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the service account email so the owner
// knows who to share the spreadsheet with.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// SyncReservations полностью перезаписывает лист бронирований
func (s *SheetsService) SyncReservations(ctx context.Context, rows []ReservationRow) error {
	values := [][]interface{}{
		{"ID", "Activity", "Date", "Start", "End", "Head Count", "Total Price", "Status", "Created At"},
	}

	for _, row := range rows {
		r := row.Reservation
		values = append(values, []interface{}{
			r.ID,
			row.Title,
			r.Date,
			r.StartTime,
			r.EndTime,
			r.HeadCount,
			r.TotalPrice,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	rangeData := fmt.Sprintf("Reservations!A1:I%d", len(values))
	valueRange := &sheets.ValueRange{Values: values}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
