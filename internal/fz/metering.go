package fz

const clusterMetering = "seMetering"

// Metering decodes seMetering reports. The factor comes from the cached
// multiplier/divisor; without it energy totals are not published and
// instantaneousDemand is passed through unscaled.
var Metering = Converter{
	Name:    "metering",
	Cluster: clusterMetering,
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		if seen(model, msg, meta, "metering") {
			return nil
		}

		factor, hasFactor := meteringFactor(msg.Endpoint)
		payload := Payload{}

		if raw, ok := msg.Data["instantaneousDemand"]; ok {
			if v, ok := ToFloat64(raw); ok {
				if hasFactor {
					v = v * factor * 1000 // kW to W
				}
				payload[model.PropertyName("power", msg)] = v
			}
		}
		if !hasFactor {
			return payload
		}
		if raw, ok := msg.Data["currentSummDelivered"]; ok {
			if v, ok := ToFloat64(raw); ok {
				payload[model.PropertyName("energy", msg)] = v * factor
			}
		}
		if raw, ok := msg.Data["currentSummReceived"]; ok {
			if v, ok := ToFloat64(raw); ok {
				payload[model.PropertyName("produced_energy", msg)] = v * factor
			}
		}
		return payload
	},
}

func meteringFactor(ep Endpoint) (float64, bool) {
	if ep == nil {
		return 0, false
	}
	m, _ := ep.ClusterAttributeValue(clusterMetering, "multiplier")
	d, _ := ep.ClusterAttributeValue(clusterMetering, "divisor")
	mul, okM := ToFloat64(m)
	div, okD := ToFloat64(d)
	if !okM || !okD || mul == 0 || div == 0 {
		return 0, false
	}
	return mul / div, true
}
